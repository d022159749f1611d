package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/core/index"
)

// ListPendingForeshadowingUseCase implements the supplemental
// `list_pending_foreshadowing` read operation: C7's overdue-aware
// pending list, exposed so an editorial UI can show writers what the
// novel still owes the reader without going through chapter generation.
type ListPendingForeshadowingUseCase struct {
	foreshadowing *indices.ForeshadowingIndex
}

// NewListPendingForeshadowingUseCase constructs a ListPendingForeshadowingUseCase.
func NewListPendingForeshadowingUseCase(foreshadowing *indices.ForeshadowingIndex) *ListPendingForeshadowingUseCase {
	return &ListPendingForeshadowingUseCase{foreshadowing: foreshadowing}
}

// Execute implements list_pending_foreshadowing(project_id,
// current_chapter, include_overdue=true) -> list<ForeshadowingRow>.
func (uc *ListPendingForeshadowingUseCase) Execute(ctx context.Context, projectID uuid.UUID, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error) {
	return uc.foreshadowing.Pending(ctx, projectID.String(), currentChapter, includeOverdue)
}
