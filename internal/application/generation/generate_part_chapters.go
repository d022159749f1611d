package generation

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// GeneratePartChaptersUseCase implements `generate_part_chapters` (§6):
// batch-serial chapter outline generation scoped to a single part's
// chapter range, reusing the surrounding part context (§4.13).
type GeneratePartChaptersUseCase struct {
	blueprintRepo      repositories.BlueprintRepository
	partOutlineRepo    repositories.PartOutlineRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	gateway            llm.Gateway
	cascade            *Cascade
	batchSize          int
	logger             *logger.Logger
}

// NewGeneratePartChaptersUseCase constructs a GeneratePartChaptersUseCase.
func NewGeneratePartChaptersUseCase(
	blueprintRepo repositories.BlueprintRepository,
	partOutlineRepo repositories.PartOutlineRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	gateway llm.Gateway,
	cascade *Cascade,
	batchSize int,
	log *logger.Logger,
) *GeneratePartChaptersUseCase {
	return &GeneratePartChaptersUseCase{
		blueprintRepo:      blueprintRepo,
		partOutlineRepo:    partOutlineRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		gateway:            gateway,
		cascade:            cascade,
		batchSize:          batchSize,
		logger:             log,
	}
}

// Execute implements generate_part_chapters(project_id, user_id,
// part_number, regenerate=False) -> list<ChapterOutline>. regenerate=true
// first deletes this part's existing ChapterOutline/Chapter rows and
// their dependent indices/vectors, on the serial-generation assumption
// that no later part has chapters yet (§5 ordering guarantee).
func (uc *GeneratePartChaptersUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, partNumber int, regenerate bool) ([]*outline.ChapterOutline, error) {
	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	parts, err := uc.partOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	part := partByNumber(parts, partNumber)
	if part == nil {
		return nil, &apperrors.NotFoundError{Resource: "part_outline", ID: strconv.Itoa(partNumber)}
	}

	if regenerate {
		if err := uc.cascade.DeleteLastPart(ctx, projectID, part.StartChapter-1); err != nil {
			return nil, err
		}
	}

	existing, err := uc.chapterOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	fromChapter := part.StartChapter
	for _, o := range existing {
		if o.ChapterNumber >= part.StartChapter && o.ChapterNumber <= part.EndChapter && o.ChapterNumber >= fromChapter {
			fromChapter = o.ChapterNumber + 1
		}
	}
	if fromChapter > part.EndChapter {
		return nil, nil
	}

	if err := part.StartGeneratingChapters(); err != nil {
		return nil, err
	}
	if err := uc.partOutlineRepo.Update(ctx, part); err != nil {
		return nil, err
	}

	lookup := buildPartLookup(parts)
	produced, err := generateChapterOutlineBatch(ctx, uc.gateway, uc.chapterOutlineRepo, b, userID, fromChapter, part.EndChapter, uc.batchSize, lookup, uc.checkpoint(ctx, part))
	if err != nil {
		return produced, err
	}

	part.Complete()
	if err := uc.partOutlineRepo.Update(ctx, part); err != nil {
		return produced, err
	}

	uc.logger.Info("part chapter outlines generated", "project_id", projectID, "part_number", partNumber, "from", fromChapter, "to", part.EndChapter)
	return produced, nil
}

// checkpoint returns a batch-loop checkpoint closure bound to part,
// mirroring GeneratePartOutlinesUseCase.checkpoint: it re-fetches the row
// to observe an externally-set cancelling state and converts it to
// cancelled before returning CancelledError, so no chapter outline batch
// beyond the last persisted one runs (§5's part-chapter cancellation
// contract).
func (uc *GeneratePartChaptersUseCase) checkpoint(ctx context.Context, part *outline.PartOutline) func(context.Context) error {
	return func(ctx context.Context) error {
		latest, err := uc.partOutlineRepo.GetByNumber(ctx, part.ProjectID, part.PartNumber)
		if err != nil {
			return err
		}
		if !latest.IsCancelling() {
			return nil
		}
		latest.Cancel()
		if err := uc.partOutlineRepo.Update(ctx, latest); err != nil {
			return err
		}
		*part = *latest
		return &apperrors.CancelledError{Checkpoint: "before_chapter_batch"}
	}
}
