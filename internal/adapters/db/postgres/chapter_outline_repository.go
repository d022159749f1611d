package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ChapterOutlineRepository = (*ChapterOutlineRepository)(nil)

// ChapterOutlineRepository implements repositories.ChapterOutlineRepository.
type ChapterOutlineRepository struct {
	db *DB
}

// NewChapterOutlineRepository creates a new chapter outline repository.
func NewChapterOutlineRepository(db *DB) *ChapterOutlineRepository {
	return &ChapterOutlineRepository{db: db}
}

func (r *ChapterOutlineRepository) Create(ctx context.Context, c *outline.ChapterOutline) error {
	query := `
		INSERT INTO chapter_outlines (id, project_id, chapter_number, title, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.ProjectID, c.ChapterNumber, c.Title, c.Summary, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ChapterOutlineRepository) GetByNumber(ctx context.Context, projectID uuid.UUID, chapterNumber int) (*outline.ChapterOutline, error) {
	query := `
		SELECT id, project_id, chapter_number, title, summary, created_at, updated_at
		FROM chapter_outlines
		WHERE project_id = $1 AND chapter_number = $2
	`
	var c outline.ChapterOutline
	err := r.db.QueryRow(ctx, query, projectID, chapterNumber).Scan(
		&c.ID, &c.ProjectID, &c.ChapterNumber, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "chapter_outline", ID: projectID.String() + "/" + strconv.Itoa(chapterNumber)}
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChapterOutlineRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.ChapterOutline, error) {
	query := `
		SELECT id, project_id, chapter_number, title, summary, created_at, updated_at
		FROM chapter_outlines
		WHERE project_id = $1
		ORDER BY chapter_number ASC
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outlines []*outline.ChapterOutline
	for rows.Next() {
		var c outline.ChapterOutline
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.ChapterNumber, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		outlines = append(outlines, &c)
	}
	return outlines, rows.Err()
}

func (r *ChapterOutlineRepository) Update(ctx context.Context, c *outline.ChapterOutline) error {
	query := `
		UPDATE chapter_outlines
		SET title = $2, summary = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.Title, c.Summary, c.UpdatedAt)
	return err
}

func (r *ChapterOutlineRepository) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	query := `DELETE FROM chapter_outlines WHERE project_id = $1 AND chapter_number >= $2`
	_, err := r.db.Exec(ctx, query, projectID, fromNumber)
	return err
}

// DeleteLastN removes the n outlines with the highest chapter_number
// (delete_chapter_outlines of §6).
func (r *ChapterOutlineRepository) DeleteLastN(ctx context.Context, projectID uuid.UUID, n int) error {
	query := `
		DELETE FROM chapter_outlines
		WHERE id IN (
			SELECT id FROM chapter_outlines
			WHERE project_id = $1
			ORDER BY chapter_number DESC
			LIMIT $2
		)
	`
	_, err := r.db.Exec(ctx, query, projectID, n)
	return err
}

func (r *ChapterOutlineRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	query := `DELETE FROM chapter_outlines WHERE project_id = $1`
	_, err := r.db.Exec(ctx, query, projectID)
	return err
}
