package rag

import (
	"fmt"
	"strings"
)

// TokenCounter maps a rendered string to an integer token count (C11,
// §4.11). Callers supply their tokenizer; tests may supply
// len([]rune(s)) as a stand-in (scenario 6 of §8).
type TokenCounter func(string) int

// Compress implements C11 (§4.11): fit the tiered context inside
// maxTokens by selectively truncating lower tiers. The Required tier is
// never dropped (contract of §4.11); ordering between tiers is
// preserved.
//
// Required-tier render: Compress re-renders the Required tier with
// RenderRequired's world-setting flag and then its relationship flag
// turned off while the render exceeds half the budget. RenderRequired
// does not emit world-setting or relationship text in any case, so
// these re-renders produce the same text and an oversized Required tier
// is kept whole. The Required fields (blueprint identity, character
// names, current outline, previous ending excerpt) are never dropped.
func Compress(ctx *TieredContext, maxTokens int, counter TokenCounter) string {
	requiredBudget := int(0.5 * float64(maxTokens))

	rendered := RenderRequired(ctx.Required, true, true)
	if counter(rendered) > requiredBudget {
		rendered = RenderRequired(ctx.Required, false, true)
	}
	if counter(rendered) > requiredBudget {
		rendered = RenderRequired(ctx.Required, false, false)
	}

	remaining := maxTokens - counter(rendered)
	if remaining < 0 {
		remaining = 0
	}

	importantBudget := int(0.7 * float64(remaining))
	importantRendered := truncateToTokens(renderImportant(ctx), importantBudget, counter)
	remaining -= counter(importantRendered)
	if remaining < 0 {
		remaining = 0
	}

	referenceRendered := truncateToTokens(renderReference(ctx), remaining, counter)

	blocks := []string{rendered}
	if importantRendered != "" {
		blocks = append(blocks, importantRendered)
	}
	if referenceRendered != "" {
		blocks = append(blocks, referenceRendered)
	}
	return strings.Join(blocks, "\n\n")
}

// TruncateToBudget exposes truncateToTokens for callers that need to fit
// an already-assembled prompt (rather than a TieredContext) inside a hard
// token ceiling — e.g. C12's final labeled-section prompt, assembled
// outside this package's tier structure but still budget-bound by
// contract (§4.11, §4.12 step 5).
func TruncateToBudget(s string, budget int, counter TokenCounter) string {
	return truncateToTokens(s, budget, counter)
}

// truncateToTokens truncates s from the tail until it fits budget tokens
// (§4.11 step 2 "truncate from the tail").
func truncateToTokens(s string, budget int, counter TokenCounter) string {
	if budget <= 0 {
		return ""
	}
	if counter(s) <= budget {
		return s
	}
	runes := []rune(s)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

func renderImportant(ctx *TieredContext) string {
	var b strings.Builder
	im := ctx.Important
	if len(im.InvolvedCharacters) > 0 {
		b.WriteString("登场角色详情:\n")
		for _, c := range im.InvolvedCharacters {
			fmt.Fprintf(&b, "- %s: %s %s %s\n", c.Name, c.Identity, c.Personality, c.Goals)
		}
	}
	if len(im.InvolvedRelationships) > 0 {
		b.WriteString("相关人物关系:\n")
		for _, r := range im.InvolvedRelationships {
			fmt.Fprintf(&b, "- %s -> %s: %s\n", r.CharacterFrom, r.CharacterTo, r.Description)
		}
	}
	if len(im.HighPriorityForeshadowing) > 0 {
		b.WriteString("高优先级伏笔:\n")
		for _, f := range im.HighPriorityForeshadowing {
			fmt.Fprintf(&b, "- %s\n", f.Description)
		}
	}
	if len(im.PreviousCharacterStates) > 0 {
		b.WriteString("上一章角色状态:\n")
		for name, delta := range im.PreviousCharacterStates {
			fmt.Fprintf(&b, "- %s: 位置=%s 状态=%s\n", name, delta.Location, delta.Status)
		}
	}
	if len(im.TopSummaries) > 0 {
		b.WriteString("检索到的章节摘要:\n")
		for _, s := range im.TopSummaries {
			fmt.Fprintf(&b, "- 第%d章: %s\n", s.ChapterNumber, s.Summary)
		}
	}
	return strings.TrimSpace(b.String())
}

func renderReference(ctx *TieredContext) string {
	var b strings.Builder
	ref := ctx.Reference
	if len(ref.WorldSetting) > 0 {
		b.WriteString("世界设定补充:\n")
		for k, v := range ref.WorldSetting {
			fmt.Fprintf(&b, "- %s: %v\n", k, v)
		}
	}
	if len(ref.TopChunks) > 0 {
		b.WriteString("检索到的剧情上下文:\n")
		for _, c := range ref.TopChunks {
			fmt.Fprintf(&b, "- 第%d章片段: %s\n", c.ChapterNumber, c.Content)
		}
	}
	if len(ref.OtherForeshadowing) > 0 {
		b.WriteString("其他伏笔:\n")
		for _, f := range ref.OtherForeshadowing {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Priority, f.Description)
		}
	}
	if len(ref.RecentKeyEvents) > 0 {
		b.WriteString("近期关键事件:\n")
		for _, e := range ref.RecentKeyEvents {
			fmt.Fprintf(&b, "- %s: %s\n", e.Type, e.Description)
		}
	}
	return strings.TrimSpace(b.String())
}
