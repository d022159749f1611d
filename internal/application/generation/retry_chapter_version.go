package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// RetryChapterVersionUseCase implements `retry_chapter_version` (§6):
// regenerate a single indicated version in place, reusing the same
// assembled context as a fresh generate_chapter call (§4.12 "Retry of
// one version").
type RetryChapterVersionUseCase struct {
	chapterRepo repositories.ChapterRepository
	versionRepo repositories.ChapterVersionRepository
	generator   *GenerateChapterUseCase
	logger      *logger.Logger
}

// NewRetryChapterVersionUseCase constructs a RetryChapterVersionUseCase.
func NewRetryChapterVersionUseCase(
	chapterRepo repositories.ChapterRepository,
	versionRepo repositories.ChapterVersionRepository,
	generator *GenerateChapterUseCase,
	log *logger.Logger,
) *RetryChapterVersionUseCase {
	return &RetryChapterVersionUseCase{
		chapterRepo: chapterRepo,
		versionRepo: versionRepo,
		generator:   generator,
		logger:      log,
	}
}

// Execute implements retry_chapter_version(project_id, user_id,
// chapter_number, version_index, custom_prompt?) -> Chapter. The
// version at version_index is replaced in place; its ID and label are
// preserved so callers keep referring to the same slot.
func (uc *RetryChapterVersionUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, chapterNumber, versionIndex int, customPrompt string) (*chapter.Chapter, error) {
	ch, err := uc.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}

	versions, err := uc.versionRepo.ListByChapter(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if versionIndex < 0 || versionIndex >= len(versions) {
		return nil, &apperrors.ValidationError{Field: "version_index", Message: "out of range"}
	}
	target := versions[versionIndex]

	regenerated, err := uc.generator.RetryVersion(ctx, projectID, userID, target.VersionLabel, chapterNumber, "", customPrompt)
	if err != nil {
		return nil, err
	}

	target.Content = regenerated.Content
	target.ProviderMetadata = regenerated.ProviderMetadata
	if err := uc.versionRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	hasSuccess := false
	for _, v := range versions {
		if !v.IsFailed() {
			hasSuccess = true
			break
		}
	}
	if hasSuccess {
		ch.MarkWaitingForConfirm()
	} else {
		ch.MarkFailed()
	}
	if err := uc.chapterRepo.Update(ctx, ch); err != nil {
		return nil, err
	}

	uc.logger.Info("chapter version retried", "project_id", projectID, "chapter_number", chapterNumber, "version_index", versionIndex, "failed", regenerated.IsFailed())
	return ch, nil
}
