package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// chapterOutlineEntry is one element of a batch's JSON array response.
type chapterOutlineEntry struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// partContext is the "surrounding part context" fed into a chapter
// outline batch prompt when the blueprint needs part outlines (§4.13
// "Chapter outline generation"): the current part's full record, the
// prior part's ending hook, and the next part's summary.
type partContext struct {
	Current *outline.PartOutline
	Prior    *outline.PartOutline
	Next     *outline.PartOutline
}

// generateChapterOutlineBatch runs the batch-serial chapter outline loop
// of §4.13 over [fromChapter, toChapter], persisting each batch
// immediately, shared by generate_chapter_outlines and
// generate_part_chapters. checkpoint, when non-nil, is invoked between
// batches so a caller scoped to a single cancellable unit (a PartOutline)
// can observe an externally-requested cancellation and stop before the
// next batch is generated; no batch beyond the last persisted one runs
// once checkpoint returns an error.
func generateChapterOutlineBatch(
	ctx context.Context,
	gateway llm.Gateway,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	b *blueprint.Blueprint,
	userID string,
	fromChapter, toChapter, batchSize int,
	partsByChapter func(chapterNumber int) partContext,
	checkpoint func(ctx context.Context) error,
) ([]*outline.ChapterOutline, error) {
	var produced []*outline.ChapterOutline

	existing, err := chapterOutlineRepo.ListByProject(ctx, b.ProjectID)
	if err != nil {
		return nil, err
	}

	for batchStart := fromChapter; batchStart <= toChapter; batchStart += batchSize {
		if checkpoint != nil {
			if err := checkpoint(ctx); err != nil {
				return produced, err
			}
		}

		batchEnd := batchStart + batchSize - 1
		if batchEnd > toChapter {
			batchEnd = toChapter
		}

		pc := partContext{}
		if partsByChapter != nil {
			pc = partsByChapter(batchStart)
		}

		resp, err := callChapterOutlineLLM(ctx, gateway, b, userID, existing, batchStart, batchEnd, pc)
		if err != nil {
			return produced, err
		}
		if len(resp) != batchEnd-batchStart+1 {
			return produced, &apperrors.ParseError{Context: "chapter outline batch", Cause: fmt.Errorf("expected %d entries, got %d", batchEnd-batchStart+1, len(resp))}
		}

		for i, entry := range resp {
			chapterNumber := batchStart + i
			co, err := outline.NewChapterOutline(b.ProjectID, chapterNumber, entry.Title, entry.Summary)
			if err != nil {
				return produced, err
			}
			if err := chapterOutlineRepo.Create(ctx, co); err != nil {
				return produced, err
			}
			existing = append(existing, co)
			produced = append(produced, co)
		}
	}

	return produced, nil
}

func callChapterOutlineLLM(ctx context.Context, gateway llm.Gateway, b *blueprint.Blueprint, userID string, priorOutlines []*outline.ChapterOutline, batchStart, batchEnd int, pc partContext) ([]chapterOutlineEntry, error) {
	count := batchEnd - batchStart + 1
	systemPrompt := fmt.Sprintf("你是一位长篇小说章节细纲策划师。请为第 %d 章到第 %d 章各生成一条章节大纲，"+
		"并只返回一个长度为 %d 的 JSON 数组，每个元素形如 {\"title\":\"\",\"summary\":\"\"}，不要包含任何解释性文字。", batchStart, batchEnd, count)

	var sb strings.Builder
	fmt.Fprintf(&sb, "书名:《%s》 一句话简介:%s\n", b.Title, b.OneSentenceSummary)

	if pc.Current != nil {
		fmt.Fprintf(&sb, "所属部分《%s》：%s\n", pc.Current.Title, pc.Current.Summary)
	}
	if pc.Prior != nil {
		fmt.Fprintf(&sb, "上一部分结尾钩子：%s\n", pc.Prior.EndingHook)
	}
	if pc.Next != nil {
		fmt.Fprintf(&sb, "下一部分概要（衔接参考）：%s\n", pc.Next.Summary)
	}

	if len(priorOutlines) > 0 {
		sb.WriteString("已生成的章节大纲：\n")
		for _, o := range priorOutlines {
			fmt.Fprintf(&sb, "- 第%d章《%s》：%s\n", o.ChapterNumber, o.Title, o.Summary)
		}
	}

	raw, err := gateway.Complete(ctx, systemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: sb.String()},
	}, llm.CompleteOptions{
		Temperature:    0.75,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      4096,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	entries, parseErr := parseChapterOutlineBatch(raw)
	if parseErr == nil {
		return entries, nil
	}
	entries, parseErr = parseChapterOutlineBatch(stripFences(raw))
	if parseErr != nil {
		return nil, &apperrors.ParseError{Context: "chapter outline batch", Cause: parseErr}
	}
	return entries, nil
}

func parseChapterOutlineBatch(raw string) ([]chapterOutlineEntry, error) {
	var entries []chapterOutlineEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// Tolerate a response wrapped under a top-level key, e.g.
		// {"chapters": [...]}.
		var wrapper map[string][]chapterOutlineEntry
		if werr := json.Unmarshal([]byte(raw), &wrapper); werr == nil {
			for _, v := range wrapper {
				return v, nil
			}
		}
		return nil, fmt.Errorf("unmarshal chapter outline batch json: %w", err)
	}
	return entries, nil
}

// buildPartLookup returns a function resolving the part-context of
// §4.13 for a given chapter number, or a no-op if part outlines are not
// in use.
func buildPartLookup(parts []*outline.PartOutline) func(chapterNumber int) partContext {
	if len(parts) == 0 {
		return func(int) partContext { return partContext{} }
	}
	return func(chapterNumber int) partContext {
		var pc partContext
		for i, p := range parts {
			if chapterNumber >= p.StartChapter && chapterNumber <= p.EndChapter {
				pc.Current = p
				if i > 0 {
					pc.Prior = parts[i-1]
				}
				if i+1 < len(parts) {
					pc.Next = parts[i+1]
				}
				break
			}
		}
		return pc
	}
}

// partByNumber finds the PartOutline containing partNumber, or nil.
func partByNumber(parts []*outline.PartOutline, partNumber int) *outline.PartOutline {
	for _, p := range parts {
		if p.PartNumber == partNumber {
			return p
		}
	}
	return nil
}
