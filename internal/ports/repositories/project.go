package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/project"
)

// ProjectRepository persists Project aggregates.
type ProjectRepository interface {
	Create(ctx context.Context, p *project.Project) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*project.Project, error)
	Update(ctx context.Context, p *project.Project) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
