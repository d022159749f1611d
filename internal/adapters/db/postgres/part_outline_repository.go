package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.PartOutlineRepository = (*PartOutlineRepository)(nil)

// PartOutlineRepository implements repositories.PartOutlineRepository.
type PartOutlineRepository struct {
	db *DB
}

// NewPartOutlineRepository creates a new part outline repository.
func NewPartOutlineRepository(db *DB) *PartOutlineRepository {
	return &PartOutlineRepository{db: db}
}

func (r *PartOutlineRepository) Create(ctx context.Context, p *outline.PartOutline) error {
	keyEvents, err := json.Marshal(p.KeyEvents)
	if err != nil {
		return err
	}
	conflicts, err := json.Marshal(p.Conflicts)
	if err != nil {
		return err
	}
	characterArcs, err := json.Marshal(p.CharacterArcs)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO part_outlines (
			id, project_id, part_number, title, summary, start_chapter, end_chapter,
			theme, key_events, conflicts, character_arcs, ending_hook,
			generation_status, progress, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.Exec(ctx, query,
		p.ID, p.ProjectID, p.PartNumber, p.Title, p.Summary, p.StartChapter, p.EndChapter,
		p.Theme, keyEvents, conflicts, characterArcs, p.EndingHook,
		string(p.GenerationStatus), p.Progress, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PartOutlineRepository) GetByNumber(ctx context.Context, projectID uuid.UUID, partNumber int) (*outline.PartOutline, error) {
	query := `
		SELECT id, project_id, part_number, title, summary, start_chapter, end_chapter,
			theme, key_events, conflicts, character_arcs, ending_hook,
			generation_status, progress, created_at, updated_at
		FROM part_outlines
		WHERE project_id = $1 AND part_number = $2
	`
	p, err := scanPartOutline(r.db.QueryRow(ctx, query, projectID, partNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "part_outline", ID: partOutlineNotFoundID(projectID, partNumber)}
		}
		return nil, err
	}
	return p, nil
}

func (r *PartOutlineRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.PartOutline, error) {
	query := `
		SELECT id, project_id, part_number, title, summary, start_chapter, end_chapter,
			theme, key_events, conflicts, character_arcs, ending_hook,
			generation_status, progress, created_at, updated_at
		FROM part_outlines
		WHERE project_id = $1
		ORDER BY part_number ASC
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outlines []*outline.PartOutline
	for rows.Next() {
		p, err := scanPartOutline(rows)
		if err != nil {
			return nil, err
		}
		outlines = append(outlines, p)
	}
	return outlines, rows.Err()
}

func (r *PartOutlineRepository) Update(ctx context.Context, p *outline.PartOutline) error {
	keyEvents, err := json.Marshal(p.KeyEvents)
	if err != nil {
		return err
	}
	conflicts, err := json.Marshal(p.Conflicts)
	if err != nil {
		return err
	}
	characterArcs, err := json.Marshal(p.CharacterArcs)
	if err != nil {
		return err
	}
	query := `
		UPDATE part_outlines
		SET title = $2, summary = $3, start_chapter = $4, end_chapter = $5,
			theme = $6, key_events = $7, conflicts = $8, character_arcs = $9,
			ending_hook = $10, generation_status = $11, progress = $12, updated_at = $13
		WHERE id = $1
	`
	_, err = r.db.Exec(ctx, query,
		p.ID, p.Title, p.Summary, p.StartChapter, p.EndChapter,
		p.Theme, keyEvents, conflicts, characterArcs,
		p.EndingHook, string(p.GenerationStatus), p.Progress, p.UpdatedAt)
	return err
}

func (r *PartOutlineRepository) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	query := `DELETE FROM part_outlines WHERE project_id = $1 AND part_number >= $2`
	_, err := r.db.Exec(ctx, query, projectID, fromNumber)
	return err
}

func (r *PartOutlineRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	query := `DELETE FROM part_outlines WHERE project_id = $1`
	_, err := r.db.Exec(ctx, query, projectID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartOutline(row rowScanner) (*outline.PartOutline, error) {
	var p outline.PartOutline
	var keyEvents, conflicts, characterArcs []byte
	var status string
	if err := row.Scan(
		&p.ID, &p.ProjectID, &p.PartNumber, &p.Title, &p.Summary, &p.StartChapter, &p.EndChapter,
		&p.Theme, &keyEvents, &conflicts, &characterArcs,
		&p.EndingHook, &status, &p.Progress, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.GenerationStatus = outline.GenerationStatus(status)
	if len(keyEvents) > 0 {
		if err := json.Unmarshal(keyEvents, &p.KeyEvents); err != nil {
			return nil, err
		}
	}
	if len(conflicts) > 0 {
		if err := json.Unmarshal(conflicts, &p.Conflicts); err != nil {
			return nil, err
		}
	}
	if len(characterArcs) > 0 {
		if err := json.Unmarshal(characterArcs, &p.CharacterArcs); err != nil {
			return nil, err
		}
	} else {
		p.CharacterArcs = map[string]string{}
	}
	return &p, nil
}

func partOutlineNotFoundID(projectID uuid.UUID, partNumber int) string {
	return projectID.String() + "/" + strconv.Itoa(partNumber)
}
