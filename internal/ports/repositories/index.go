package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/index"
)

// CharacterStateIndexRepository persists the CharacterStateIndex (C6, §4.6).
type CharacterStateIndexRepository interface {
	// DeleteByChapter removes every row for (projectID, chapterNumber)
	// (write-path step 1 of §4.6).
	DeleteByChapter(ctx context.Context, projectID string, chapterNumber int) error
	// InsertMany inserts the replacement rows (write-path step 2).
	InsertMany(ctx context.Context, rows []*index.CharacterStateRow) error
	// History returns rows for characterName strictly before
	// beforeChapter, ordered chapter_number descending, limited to limit
	// rows (0 = unlimited).
	History(ctx context.Context, projectID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error)
	// ChapterStates returns the map<character_name, state> for one chapter.
	ChapterStates(ctx context.Context, projectID string, chapterNumber int) (map[string]*index.CharacterStateRow, error)
}

// ForeshadowingIndexRepository persists the ForeshadowingIndex (C7, §4.7).
type ForeshadowingIndexRepository interface {
	Insert(ctx context.Context, row *index.ForeshadowingRow) error
	// FindBySimilarityKey looks up an existing row for projectID whose
	// case-folded first-80-chars description key matches key, used for
	// de-dup on ingest (§4.7, L4/B4).
	FindBySimilarityKey(ctx context.Context, projectID, key string) (*index.ForeshadowingRow, error)
	UpdateResolution(ctx context.Context, id uuid.UUID, resolvedChapter int, resolution string) error
	// Pending returns pending rows for projectID, optionally including
	// overdue (remind_after_chapter <= currentChapter) rows per
	// includeOverdue, sorted by (priority desc, planted_chapter asc).
	Pending(ctx context.Context, projectID string, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error)
	DeleteByProject(ctx context.Context, projectID string) error
	DeleteFromChapter(ctx context.Context, projectID string, fromChapter int) error
}
