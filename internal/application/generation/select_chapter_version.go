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

// SelectChapterVersionUseCase implements `select_chapter_version` (§6):
// commit one candidate version, then run C5/C6/C7/C4 outside the
// selection transaction (§4.12 "Version selection").
type SelectChapterVersionUseCase struct {
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

// NewSelectChapterVersionUseCase constructs a SelectChapterVersionUseCase.
func NewSelectChapterVersionUseCase(
	chapterRepo repositories.ChapterRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	versionRepo repositories.ChapterVersionRepository,
	blueprintRepo repositories.BlueprintRepository,
	analyzer *analysis.Analyzer,
	characterIdx *indices.CharacterStateIndex,
	foreshadowing *indices.ForeshadowingIndex,
	ingestor *ingest.ChapterIngestor,
	log *logger.Logger,
) *SelectChapterVersionUseCase {
	return &SelectChapterVersionUseCase{
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

// Execute implements select_chapter_version(project_id, user_id,
// chapter_number, version_index) -> Chapter.
func (uc *SelectChapterVersionUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, chapterNumber, versionIndex int) (*chapter.Chapter, error) {
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
	selected := versions[versionIndex]
	if selected.IsFailed() {
		return nil, &apperrors.ValidationError{Field: "version_index", Message: "cannot select a failed version"}
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

	data, err := uc.analyzer.Analyze(ctx, userID, selected.Content, co.Title, chapterNumber, b.Title)
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
	if err := uc.ingestor.IngestChapter(ctx, projectIDStr, chapterNumber, co.Title, selected.Content, summary, userID); err != nil {
		return nil, err
	}

	uc.logger.Info("chapter version selected", "project_id", projectID, "chapter_number", chapterNumber, "version_index", versionIndex)
	return ch, nil
}
