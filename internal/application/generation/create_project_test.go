package generation

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/logger"
)

type fakeProjectRepo struct {
	created *project.Project
	saveErr error
}

func (f *fakeProjectRepo) Create(ctx context.Context, p *project.Project) error {
	f.created = p
	return f.saveErr
}
func (f *fakeProjectRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*project.Project, error) {
	return f.created, nil
}
func (f *fakeProjectRepo) Update(ctx context.Context, p *project.Project) error { return nil }
func (f *fakeProjectRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error { return nil }

func TestCreateProjectUseCase_CreatesDraftProject(t *testing.T) {
	repo := &fakeProjectRepo{}
	uc := NewCreateProjectUseCase(repo, logger.New())
	tenantID := uuid.New()

	p, err := uc.Execute(context.Background(), tenantID, "user-1", "My Novel", "a lonely lighthouse keeper")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != project.StatusDraft {
		t.Errorf("expected StatusDraft, got %s", p.Status)
	}
	if p.TenantID != tenantID {
		t.Errorf("expected tenant id to be threaded through, got %s", p.TenantID)
	}
	if repo.created != p {
		t.Error("expected the created project to be persisted via the repository")
	}
}

func TestCreateProjectUseCase_RejectsEmptyTitle(t *testing.T) {
	uc := NewCreateProjectUseCase(&fakeProjectRepo{}, logger.New())
	if _, err := uc.Execute(context.Background(), uuid.New(), "user-1", "", "a prompt"); err == nil {
		t.Error("expected error for empty title")
	}
}
