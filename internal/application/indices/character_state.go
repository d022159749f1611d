// Package indices implements C6 (character-state index) and C7
// (foreshadowing index) write/read paths, §4.6/§4.7.
package indices

import (
	"context"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// CharacterStateIndex implements C6 (§4.6).
type CharacterStateIndex struct {
	repo repositories.CharacterStateIndexRepository
}

// NewCharacterStateIndex constructs a CharacterStateIndex.
func NewCharacterStateIndex(repo repositories.CharacterStateIndexRepository) *CharacterStateIndex {
	return &CharacterStateIndex{repo: repo}
}

// Update implements the §4.6 write path: delete all rows for
// (projectID, chapterNumber), then insert one row per entry of states.
func (c *CharacterStateIndex) Update(ctx context.Context, projectID string, chapterNumber int, states map[string]chapter.CharacterStateDelta) error {
	if err := c.repo.DeleteByChapter(ctx, projectID, chapterNumber); err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}
	rows := make([]*index.CharacterStateRow, 0, len(states))
	for name, delta := range states {
		rows = append(rows, &index.CharacterStateRow{
			ProjectID:     projectID,
			ChapterNumber: chapterNumber,
			CharacterName: name,
			Location:      delta.Location,
			Status:        delta.Status,
			Changes:       delta.Changes,
		})
	}
	return c.repo.InsertMany(ctx, rows)
}

// History implements the §4.6 read path: rows for characterName before
// beforeChapter, ordered chapter_number descending, limited to limit.
func (c *CharacterStateIndex) History(ctx context.Context, projectID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error) {
	return c.repo.History(ctx, projectID, characterName, beforeChapter, limit)
}

// ChapterStates returns map<character_name, state> for one chapter.
func (c *CharacterStateIndex) ChapterStates(ctx context.Context, projectID string, chapterNumber int) (map[string]*index.CharacterStateRow, error) {
	return c.repo.ChapterStates(ctx, projectID, chapterNumber)
}
