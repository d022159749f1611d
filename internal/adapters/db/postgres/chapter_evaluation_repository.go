package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ChapterEvaluationRepository = (*ChapterEvaluationRepository)(nil)

// ChapterEvaluationRepository implements repositories.ChapterEvaluationRepository.
type ChapterEvaluationRepository struct {
	db *DB
}

// NewChapterEvaluationRepository creates a new chapter evaluation repository.
func NewChapterEvaluationRepository(db *DB) *ChapterEvaluationRepository {
	return &ChapterEvaluationRepository{db: db}
}

func (r *ChapterEvaluationRepository) Create(ctx context.Context, e *chapter.Evaluation) error {
	query := `
		INSERT INTO chapter_evaluations (id, chapter_id, version_id, decision, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.ChapterID, e.VersionID, string(e.Decision), e.Feedback, e.CreatedAt)
	return err
}

func (r *ChapterEvaluationRepository) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Evaluation, error) {
	query := `
		SELECT id, chapter_id, version_id, decision, feedback, created_at
		FROM chapter_evaluations
		WHERE chapter_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evaluations []*chapter.Evaluation
	for rows.Next() {
		var e chapter.Evaluation
		var decision string
		if err := rows.Scan(&e.ID, &e.ChapterID, &e.VersionID, &decision, &e.Feedback, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Decision = chapter.EvaluationDecision(decision)
		evaluations = append(evaluations, &e)
	}
	return evaluations, rows.Err()
}

func (r *ChapterEvaluationRepository) DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error {
	query := `DELETE FROM chapter_evaluations WHERE chapter_id = $1`
	_, err := r.db.Exec(ctx, query, chapterID)
	return err
}
