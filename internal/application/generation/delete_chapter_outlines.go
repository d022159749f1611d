package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// DeleteChapterOutlinesUseCase implements `delete_chapter_outlines`
// (§6): trim the N most recently numbered ChapterOutline rows, for
// callers that want to shrink a project's outline tail without
// touching already-written chapters.
type DeleteChapterOutlinesUseCase struct {
	chapterOutlineRepo repositories.ChapterOutlineRepository
	logger             *logger.Logger
}

// NewDeleteChapterOutlinesUseCase constructs a DeleteChapterOutlinesUseCase.
func NewDeleteChapterOutlinesUseCase(chapterOutlineRepo repositories.ChapterOutlineRepository, log *logger.Logger) *DeleteChapterOutlinesUseCase {
	return &DeleteChapterOutlinesUseCase{chapterOutlineRepo: chapterOutlineRepo, logger: log}
}

// Execute implements delete_chapter_outlines(project_id, user_id,
// count_from_end) -> void.
func (uc *DeleteChapterOutlinesUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, countFromEnd int) error {
	if countFromEnd < 1 {
		return &apperrors.ValidationError{Field: "count_from_end", Message: "must be >= 1"}
	}

	existing, err := uc.chapterOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if countFromEnd > len(existing) {
		return &apperrors.ValidationError{Field: "count_from_end", Message: "exceeds number of existing chapter outlines"}
	}

	if err := uc.chapterOutlineRepo.DeleteLastN(ctx, projectID, countFromEnd); err != nil {
		return err
	}

	uc.logger.Info("chapter outlines deleted", "project_id", projectID, "count", countFromEnd)
	return nil
}
