package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/application/analysis"
	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/ingest"
	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// UpdateChapterContentUseCase implements `update_chapter_content` (§6):
// a human edit of the selected version's text, which must re-run the
// same C5/C6/C7/C4 chain as SelectChapterVersionUseCase so the indices
// and vector store reflect the edited prose rather than the original
// generation (spec.md:295).
type UpdateChapterContentUseCase struct {
	chapterRepo        repositories.ChapterRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	versionRepo        repositories.ChapterVersionRepository
	blueprintRepo      repositories.BlueprintRepository
	analyzer           *analysis.Analyzer
	characterIdx       *indices.CharacterStateIndex
	foreshadowing      *indices.ForeshadowingIndex
	ingestor           *ingest.ChapterIngestor
	logger             *logger.Logger
}

// NewUpdateChapterContentUseCase constructs an UpdateChapterContentUseCase.
func NewUpdateChapterContentUseCase(
	chapterRepo repositories.ChapterRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	versionRepo repositories.ChapterVersionRepository,
	blueprintRepo repositories.BlueprintRepository,
	analyzer *analysis.Analyzer,
	characterIdx *indices.CharacterStateIndex,
	foreshadowing *indices.ForeshadowingIndex,
	ingestor *ingest.ChapterIngestor,
	log *logger.Logger,
) *UpdateChapterContentUseCase {
	return &UpdateChapterContentUseCase{
		chapterRepo:        chapterRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		versionRepo:        versionRepo,
		blueprintRepo:      blueprintRepo,
		analyzer:           analyzer,
		characterIdx:       characterIdx,
		foreshadowing:      foreshadowing,
		ingestor:           ingestor,
		logger:             log,
	}
}

// Execute implements update_chapter_content(project_id, user_id,
// chapter_number, new_content) -> Chapter.
func (uc *UpdateChapterContentUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, chapterNumber int, newContent string) (*chapter.Chapter, error) {
	if newContent == "" {
		return nil, &apperrors.ValidationError{Field: "new_content", Message: "must not be empty"}
	}

	ch, err := uc.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	if ch.SelectedVersionID == nil {
		return nil, &apperrors.ValidationError{Field: "chapter_number", Message: "chapter has no selected version to edit"}
	}

	selected, err := uc.versionRepo.GetByID(ctx, *ch.SelectedVersionID)
	if err != nil {
		return nil, err
	}
	selected.Content = newContent
	if err := uc.versionRepo.Update(ctx, selected); err != nil {
		return nil, err
	}
	ch.SelectVersion(selected)
	if err := uc.chapterRepo.Update(ctx, ch); err != nil {
		return nil, err
	}

	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	co, err := uc.chapterOutlineRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}

	data, err := uc.analyzer.Analyze(ctx, userID, newContent, co.Title, chapterNumber, b.Title)
	if err != nil {
		return nil, err
	}
	ch.SetAnalysis(data)
	if err := uc.chapterRepo.Update(ctx, ch); err != nil {
		return nil, err
	}

	projectIDStr := projectID.String()
	if err := uc.characterIdx.Update(ctx, projectIDStr, chapterNumber, data.CharacterStates); err != nil {
		return nil, err
	}
	if err := uc.foreshadowing.Ingest(ctx, projectIDStr, chapterNumber, data.Foreshadowing); err != nil {
		return nil, err
	}

	summary := ""
	if ch.RealSummary != nil {
		summary = *ch.RealSummary
	}
	if err := uc.ingestor.IngestChapter(ctx, projectIDStr, chapterNumber, co.Title, newContent, summary, userID); err != nil {
		return nil, err
	}

	uc.logger.Info("chapter content updated", "project_id", projectID, "chapter_number", chapterNumber)
	return ch, nil
}
