package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// CreateProjectUseCase implements `create_project` (§6).
type CreateProjectUseCase struct {
	projectRepo repositories.ProjectRepository
	logger      *logger.Logger
}

// NewCreateProjectUseCase constructs a CreateProjectUseCase.
func NewCreateProjectUseCase(projectRepo repositories.ProjectRepository, log *logger.Logger) *CreateProjectUseCase {
	return &CreateProjectUseCase{projectRepo: projectRepo, logger: log}
}

// Execute creates a project in StatusDraft.
func (uc *CreateProjectUseCase) Execute(ctx context.Context, tenantID uuid.UUID, userID, title, initialPrompt string) (*project.Project, error) {
	p, err := project.New(tenantID, title, initialPrompt)
	if err != nil {
		return nil, err
	}
	if err := uc.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.logger.Info("project created", "project_id", p.ID, "user_id", userID)
	return p, nil
}
