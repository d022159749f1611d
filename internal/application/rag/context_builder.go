package rag

import (
	"fmt"
	"strings"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/core/outline"
)

// RequiredTier is always included (§4.10).
type RequiredTier struct {
	BlueprintTitle   string
	OneSentenceSummary string
	Genre            string
	Style            string
	Tone             string
	CharacterNames   []string
	CurrentOutline   *outline.ChapterOutline
	PreviousEndingExcerpt string // last 1000 characters of previous chapter's selected version
}

// ImportantTier is included when budget allows (§4.10).
type ImportantTier struct {
	InvolvedCharacters    []*blueprint.Character
	InvolvedRelationships []*blueprint.Relationship
	HighPriorityForeshadowing []*index.ForeshadowingRow
	PreviousCharacterStates map[string]chapter.CharacterStateDelta
	TopSummaries          []*memory.Summary // top-3
}

// ReferenceTier is included if budget remains (§4.10).
type ReferenceTier struct {
	WorldSetting          map[string]any
	TopChunks             []*memory.Chunk // top-5
	OtherForeshadowing    []*index.ForeshadowingRow // medium/low
	RecentKeyEvents       []chapter.KeyEvent
}

// LayeredSummaryEntry is one entry of the layered historical summary of
// §4.10: full summary for recent chapters, a one-sentence brief for
// older ones.
type LayeredSummaryEntry struct {
	ChapterNumber int
	Text          string
	IsFull        bool
}

// TieredContext is C10's output (§4.10).
type TieredContext struct {
	Required RequiredTier
	Important ImportantTier
	Reference ReferenceTier
	LayeredSummary []LayeredSummaryEntry
}

// recentWindow is the "last 10 chapters" window of §4.10 that gets full
// summaries rather than one-sentence briefs.
const recentWindow = 10

// PriorChapterSummary bundles what BuildLayeredSummary needs per prior
// chapter.
type PriorChapterSummary struct {
	ChapterNumber int
	Summary       string
}

// BuildLayeredSummary implements the §4.10 layered historical summary.
func BuildLayeredSummary(priors []PriorChapterSummary, currentChapter int) []LayeredSummaryEntry {
	entries := make([]LayeredSummaryEntry, 0, len(priors))
	for _, p := range priors {
		if p.ChapterNumber >= currentChapter-recentWindow {
			entries = append(entries, LayeredSummaryEntry{ChapterNumber: p.ChapterNumber, Text: p.Summary, IsFull: true})
		} else {
			entries = append(entries, LayeredSummaryEntry{ChapterNumber: p.ChapterNumber, Text: outline.FirstSentence(p.Summary), IsFull: false})
		}
	}
	return entries
}

// BuildContextInput bundles everything needed to assemble a TieredContext.
type BuildContextInput struct {
	Blueprint              *blueprint.Blueprint
	CurrentOutline         *outline.ChapterOutline
	PreviousVersionContent string // previous chapter's selected version content, "" if none
	PreviousAnalysis       *chapter.AnalysisData
	PendingForeshadowing   []*index.ForeshadowingRow
	RetrievedSummaries     []*memory.Summary
	RetrievedChunks        []*memory.Chunk
	RecentKeyEvents        []chapter.KeyEvent
	LayeredSummary         []LayeredSummaryEntry
}

// BuildContext implements C10 (§4.10).
func BuildContext(in BuildContextInput) *TieredContext {
	ctx := &TieredContext{LayeredSummary: in.LayeredSummary}

	ctx.Required = RequiredTier{
		BlueprintTitle:        in.Blueprint.Title,
		OneSentenceSummary:    in.Blueprint.OneSentenceSummary,
		Genre:                 in.Blueprint.Genre,
		Style:                 in.Blueprint.Style,
		Tone:                  in.Blueprint.Tone,
		CharacterNames:        characterNames(in.Blueprint.Characters),
		CurrentOutline:        in.CurrentOutline,
		PreviousEndingExcerpt: lastNRunes(in.PreviousVersionContent, 1000),
	}

	outlineText := in.CurrentOutline.Title + " " + in.CurrentOutline.Summary
	involved := involvedCharacters(in.Blueprint.Characters, outlineText)
	involvedNames := make(map[string]bool, len(involved))
	for _, c := range involved {
		involvedNames[c.Name] = true
	}

	var highPriority, other []*index.ForeshadowingRow
	for _, row := range in.PendingForeshadowing {
		if row.Priority == "high" {
			highPriority = append(highPriority, row)
		} else {
			other = append(other, row)
		}
	}

	var previousStates map[string]chapter.CharacterStateDelta
	if in.PreviousAnalysis != nil {
		previousStates = in.PreviousAnalysis.CharacterStates
	}

	topSummaries := in.RetrievedSummaries
	if len(topSummaries) > 3 {
		topSummaries = topSummaries[:3]
	}

	ctx.Important = ImportantTier{
		InvolvedCharacters:        involved,
		InvolvedRelationships:     involvedRelationships(in.Blueprint.Relationships, involvedNames),
		HighPriorityForeshadowing: highPriority,
		PreviousCharacterStates:   previousStates,
		TopSummaries:              topSummaries,
	}

	topChunks := in.RetrievedChunks
	if len(topChunks) > 5 {
		topChunks = topChunks[:5]
	}

	ctx.Reference = ReferenceTier{
		WorldSetting:       in.Blueprint.WorldSetting,
		TopChunks:          topChunks,
		OtherForeshadowing: other,
		RecentKeyEvents:    in.RecentKeyEvents,
	}

	return ctx
}

func characterNames(chars []*blueprint.Character) []string {
	names := make([]string, len(chars))
	for i, c := range chars {
		names[i] = c.Name
	}
	return names
}

func involvedCharacters(chars []*blueprint.Character, outlineText string) []*blueprint.Character {
	var out []*blueprint.Character
	for _, c := range chars {
		if c.Name != "" && strings.Contains(outlineText, c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func involvedRelationships(rels []*blueprint.Relationship, involvedNames map[string]bool) []*blueprint.Relationship {
	var out []*blueprint.Relationship
	for _, r := range rels {
		if involvedNames[r.CharacterFrom] || involvedNames[r.CharacterTo] {
			out = append(out, r)
		}
	}
	return out
}

func lastNRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// RenderRequired renders the required tier to text for the compressor
// and the final prompt assembly (§4.11 step 1). includeWorldSetting and
// includeRelationships do not change the output: the required tier
// carries no world-setting or relationship data to render.
func RenderRequired(r RequiredTier, includeWorldSetting, includeRelationships bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "书名: %s\n", r.BlueprintTitle)
	fmt.Fprintf(&b, "一句话简介: %s\n", r.OneSentenceSummary)
	fmt.Fprintf(&b, "类型: %s 风格: %s 基调: %s\n", r.Genre, r.Style, r.Tone)
	fmt.Fprintf(&b, "角色列表: %s\n", strings.Join(r.CharacterNames, "、"))
	if r.CurrentOutline != nil {
		fmt.Fprintf(&b, "本章标题: %s\n本章大纲: %s\n", r.CurrentOutline.Title, r.CurrentOutline.Summary)
	}
	if r.PreviousEndingExcerpt != "" {
		fmt.Fprintf(&b, "上一章结尾: %s\n", r.PreviousEndingExcerpt)
	}
	return b.String()
}
