package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// GenerateChapterOutlinesUseCase implements `generate_chapter_outlines`
// (§6): batch-serial generation of the next `count` chapter outlines
// past whatever has already been produced (§4.13 "Chapter outline
// generation").
type GenerateChapterOutlinesUseCase struct {
	projectRepo        repositories.ProjectRepository
	blueprintRepo      repositories.BlueprintRepository
	partOutlineRepo    repositories.PartOutlineRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	gateway            llm.Gateway
	batchSize          int
	logger             *logger.Logger
}

// NewGenerateChapterOutlinesUseCase constructs a GenerateChapterOutlinesUseCase.
func NewGenerateChapterOutlinesUseCase(
	projectRepo repositories.ProjectRepository,
	blueprintRepo repositories.BlueprintRepository,
	partOutlineRepo repositories.PartOutlineRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	gateway llm.Gateway,
	batchSize int,
	log *logger.Logger,
) *GenerateChapterOutlinesUseCase {
	return &GenerateChapterOutlinesUseCase{
		projectRepo:        projectRepo,
		blueprintRepo:      blueprintRepo,
		partOutlineRepo:    partOutlineRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		gateway:            gateway,
		batchSize:          batchSize,
		logger:             log,
	}
}

// Execute implements generate_chapter_outlines(project_id, user_id, count) -> list<ChapterOutline>.
func (uc *GenerateChapterOutlinesUseCase) Execute(ctx context.Context, tenantID, projectID uuid.UUID, userID string, count int) ([]*outline.ChapterOutline, error) {
	if count < 1 {
		return nil, &apperrors.ValidationError{Field: "count", Message: "must be >= 1"}
	}

	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.chapterOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	nextChapter := 1
	for _, o := range existing {
		if o.ChapterNumber >= nextChapter {
			nextChapter = o.ChapterNumber + 1
		}
	}

	toChapter := nextChapter + count - 1
	if toChapter > b.TotalChapters {
		toChapter = b.TotalChapters
	}
	if toChapter < nextChapter {
		return nil, nil
	}

	var lookup func(int) partContext
	if b.NeedsPartOutlines {
		parts, err := uc.partOutlineRepo.ListByProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		lookup = buildPartLookup(parts)
	}

	produced, err := generateChapterOutlineBatch(ctx, uc.gateway, uc.chapterOutlineRepo, b, userID, nextChapter, toChapter, uc.batchSize, lookup, nil)
	if err != nil {
		return produced, err
	}

	if toChapter == b.TotalChapters {
		if err := outline.ValidateChapterNumberOrdering(append(existing, produced...)); err != nil {
			return produced, err
		}
		p, err := uc.projectRepo.GetByID(ctx, tenantID, projectID)
		if err != nil {
			return produced, err
		}
		if err := p.Apply(project.EventChapterOutlinesGenerated, false); err != nil {
			return produced, err
		}
		if err := uc.projectRepo.Update(ctx, p); err != nil {
			return produced, err
		}
	}

	uc.logger.Info("chapter outlines generated", "project_id", projectID, "from", nextChapter, "to", toChapter)
	return produced, nil
}
