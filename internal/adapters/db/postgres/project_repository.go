package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ProjectRepository = (*ProjectRepository)(nil)

// ProjectRepository implements repositories.ProjectRepository.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project row.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	query := `
		INSERT INTO projects (id, tenant_id, title, initial_prompt, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.TenantID, p.Title, p.InitialPrompt, string(p.Status), p.CreatedAt, p.UpdatedAt)
	return err
}

// GetByID retrieves a project scoped to tenantID.
func (r *ProjectRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*project.Project, error) {
	query := `
		SELECT id, tenant_id, title, initial_prompt, status, created_at, updated_at
		FROM projects
		WHERE tenant_id = $1 AND id = $2
	`
	var p project.Project
	var status string
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.Title, &p.InitialPrompt, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "project", ID: id.String()}
		}
		return nil, err
	}
	p.Status = project.Status(status)
	return &p, nil
}

// Update persists mutated project fields.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) error {
	query := `
		UPDATE projects
		SET title = $2, initial_prompt = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Title, p.InitialPrompt, string(p.Status), p.UpdatedAt)
	return err
}

// Delete removes a project scoped to tenantID.
func (r *ProjectRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM projects WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}
