package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ForeshadowingIndexRepository = (*ForeshadowingIndexRepository)(nil)

// ForeshadowingIndexRepository implements repositories.ForeshadowingIndexRepository
// (C7, §4.7).
type ForeshadowingIndexRepository struct {
	db *DB
}

// NewForeshadowingIndexRepository creates a new foreshadowing index repository.
func NewForeshadowingIndexRepository(db *DB) *ForeshadowingIndexRepository {
	return &ForeshadowingIndexRepository{db: db}
}

func (r *ForeshadowingIndexRepository) Insert(ctx context.Context, row *index.ForeshadowingRow) error {
	relatedEntities, err := json.Marshal(row.RelatedEntities)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO foreshadowing_index (
			id, project_id, planted_chapter, description, original_text, category,
			priority, related_entities, status, resolved_chapter, resolution,
			remind_after_chapter, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.Exec(ctx, query,
		row.ID, row.ProjectID, row.PlantedChapter, row.Description, row.OriginalText, row.Category,
		row.Priority, relatedEntities, string(row.Status), row.ResolvedChapter, row.Resolution,
		row.RemindAfterChapter, row.CreatedAt, row.UpdatedAt)
	return err
}

func (r *ForeshadowingIndexRepository) FindBySimilarityKey(ctx context.Context, projectID, key string) (*index.ForeshadowingRow, error) {
	query := `
		SELECT id, project_id, planted_chapter, description, original_text, category,
			priority, related_entities, status, resolved_chapter, resolution,
			remind_after_chapter, created_at, updated_at
		FROM foreshadowing_index
		WHERE project_id = $1 AND lower(left(description, 80)) = $2
		LIMIT 1
	`
	row, err := scanForeshadowingRow(r.db.QueryRow(ctx, query, projectID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "foreshadowing", ID: key}
		}
		return nil, err
	}
	return row, nil
}

func (r *ForeshadowingIndexRepository) UpdateResolution(ctx context.Context, id uuid.UUID, resolvedChapter int, resolution string) error {
	query := `
		UPDATE foreshadowing_index
		SET status = $2, resolved_chapter = $3, resolution = $4, updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, string(index.ForeshadowingResolved), resolvedChapter, resolution)
	return err
}

func (r *ForeshadowingIndexRepository) Pending(ctx context.Context, projectID string, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error) {
	query := `
		SELECT id, project_id, planted_chapter, description, original_text, category,
			priority, related_entities, status, resolved_chapter, resolution,
			remind_after_chapter, created_at, updated_at
		FROM foreshadowing_index
		WHERE project_id = $1 AND status = $2
	`
	var rows pgx.Rows
	var err error
	if includeOverdue {
		rows, err = r.db.Query(ctx, query, projectID, string(index.ForeshadowingPending))
	} else {
		query += ` AND (remind_after_chapter IS NULL OR remind_after_chapter > $3)`
		rows, err = r.db.Query(ctx, query, projectID, string(index.ForeshadowingPending), currentChapter)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*index.ForeshadowingRow
	for rows.Next() {
		row, err := scanForeshadowingRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	index.SortPending(result)
	return result, nil
}

func (r *ForeshadowingIndexRepository) DeleteByProject(ctx context.Context, projectID string) error {
	query := `DELETE FROM foreshadowing_index WHERE project_id = $1`
	_, err := r.db.Exec(ctx, query, projectID)
	return err
}

func (r *ForeshadowingIndexRepository) DeleteFromChapter(ctx context.Context, projectID string, fromChapter int) error {
	query := `DELETE FROM foreshadowing_index WHERE project_id = $1 AND planted_chapter >= $2`
	_, err := r.db.Exec(ctx, query, projectID, fromChapter)
	return err
}

func scanForeshadowingRow(row rowScanner) (*index.ForeshadowingRow, error) {
	var f index.ForeshadowingRow
	var status string
	var relatedEntities []byte
	if err := row.Scan(
		&f.ID, &f.ProjectID, &f.PlantedChapter, &f.Description, &f.OriginalText, &f.Category,
		&f.Priority, &relatedEntities, &status, &f.ResolvedChapter, &f.Resolution,
		&f.RemindAfterChapter, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Status = index.ForeshadowingStatus(status)
	if len(relatedEntities) > 0 {
		if err := json.Unmarshal(relatedEntities, &f.RelatedEntities); err != nil {
			return nil, err
		}
	}
	return &f, nil
}
