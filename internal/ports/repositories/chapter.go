package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/chapter"
)

// ChapterRepository persists Chapter rows (not including their owned
// Versions/Evaluations, which live in dedicated repositories below,
// mirroring the teacher's one-repo-per-entity convention even for
// entities owned by a parent aggregate).
type ChapterRepository interface {
	Create(ctx context.Context, c *chapter.Chapter) error
	GetByNumber(ctx context.Context, projectID uuid.UUID, chapterNumber int) (*chapter.Chapter, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*chapter.Chapter, error)
	Update(ctx context.Context, c *chapter.Chapter) error
	DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

// ChapterVersionRepository persists ChapterVersion rows.
type ChapterVersionRepository interface {
	Create(ctx context.Context, v *chapter.Version) error
	GetByID(ctx context.Context, id uuid.UUID) (*chapter.Version, error)
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Version, error)
	Update(ctx context.Context, v *chapter.Version) error
	DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error
}

// ChapterEvaluationRepository persists ChapterEvaluation rows.
type ChapterEvaluationRepository interface {
	Create(ctx context.Context, e *chapter.Evaluation) error
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Evaluation, error)
	DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error
}
