package indices

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// ForeshadowingIndex implements C7 (§4.7). The de-duplication key is
// pinned, per the resolved Open Question of §9, to the case-folded first
// 80 characters of description.
type ForeshadowingIndex struct {
	repo repositories.ForeshadowingIndexRepository
}

// NewForeshadowingIndex constructs a ForeshadowingIndex.
func NewForeshadowingIndex(repo repositories.ForeshadowingIndexRepository) *ForeshadowingIndex {
	return &ForeshadowingIndex{repo: repo}
}

// SimilarityKey computes the de-dup key of §4.7/§9: case-folded first 80
// characters of description.
func SimilarityKey(description string) string {
	runes := []rune(strings.ToLower(description))
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

// Ingest implements the §4.7 write path.
func (f *ForeshadowingIndex) Ingest(ctx context.Context, projectID string, chapterNumber int, block chapter.ForeshadowingBlock) error {
	for _, planted := range block.Planted {
		key := SimilarityKey(planted.Description)
		existing, err := f.repo.FindBySimilarityKey(ctx, projectID, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue // de-dup: skip (L4/B4)
		}
		row := &index.ForeshadowingRow{
			ID:              uuid.New(),
			ProjectID:       projectID,
			PlantedChapter:  chapterNumber,
			Description:     planted.Description,
			OriginalText:    planted.OriginalText,
			Category:        planted.Category,
			Priority:        string(planted.Priority),
			RelatedEntities: planted.RelatedEntities,
			Status:          index.ForeshadowingPending,
		}
		if err := f.repo.Insert(ctx, row); err != nil {
			return err
		}
	}

	for _, resolved := range block.Resolved {
		if resolved.ID == "" {
			continue
		}
		id, err := uuid.Parse(resolved.ID)
		if err != nil {
			continue // malformed id from the LLM response; skip rather than fail the chapter flow
		}
		if err := f.repo.UpdateResolution(ctx, id, chapterNumber, resolved.Resolution); err != nil {
			return err
		}
	}
	return nil
}

// Pending implements the §4.7 read path.
func (f *ForeshadowingIndex) Pending(ctx context.Context, projectID string, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error) {
	rows, err := f.repo.Pending(ctx, projectID, currentChapter, includeOverdue)
	if err != nil {
		return nil, err
	}
	index.SortPending(rows)
	return rows, nil
}

// SuggestResolutionChapters implements the advisory of §4.7: for each
// pending row, a target chapter number by priority. Returned as a map
// keyed by the row's string id for convenient lookup by the query
// builder (C8).
func (f *ForeshadowingIndex) SuggestResolutionChapters(ctx context.Context, projectID string, totalChapters int) (map[string]int, error) {
	rows, err := f.repo.Pending(ctx, projectID, totalChapters, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ID.String()] = index.SuggestResolutionChapter(row, totalChapters)
	}
	return out, nil
}
