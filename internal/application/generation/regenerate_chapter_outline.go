package generation

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// RegenerateChapterOutlineUseCase implements `regenerate_chapter_outline`
// (§6): regenerating the last ChapterOutline is free; regenerating any
// earlier one requires cascade_delete=true and wipes everything after
// it (§4.13 "Regenerating a non-last ChapterOutline").
type RegenerateChapterOutlineUseCase struct {
	blueprintRepo      repositories.BlueprintRepository
	partOutlineRepo    repositories.PartOutlineRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	gateway            llm.Gateway
	cascade            *Cascade
	logger             *logger.Logger
}

// NewRegenerateChapterOutlineUseCase constructs a RegenerateChapterOutlineUseCase.
func NewRegenerateChapterOutlineUseCase(
	blueprintRepo repositories.BlueprintRepository,
	partOutlineRepo repositories.PartOutlineRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	gateway llm.Gateway,
	cascade *Cascade,
	log *logger.Logger,
) *RegenerateChapterOutlineUseCase {
	return &RegenerateChapterOutlineUseCase{
		blueprintRepo:      blueprintRepo,
		partOutlineRepo:    partOutlineRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		gateway:            gateway,
		cascade:            cascade,
		logger:             log,
	}
}

// Execute implements regenerate_chapter_outline(project_id, user_id,
// chapter_number, cascade_delete=False, prompt?) -> ChapterOutline.
func (uc *RegenerateChapterOutlineUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, chapterNumber int, cascadeDelete bool, prompt string) (*outline.ChapterOutline, error) {
	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.chapterOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	maxChapter := 0
	for _, o := range existing {
		if o.ChapterNumber > maxChapter {
			maxChapter = o.ChapterNumber
		}
	}
	target := outlineByNumber(existing, chapterNumber)
	if target == nil {
		return nil, &apperrors.NotFoundError{Resource: "chapter_outline", ID: strconv.Itoa(chapterNumber)}
	}

	if chapterNumber != maxChapter && !cascadeDelete {
		var toDelete []string
		for _, o := range existing {
			if o.ChapterNumber > chapterNumber {
				toDelete = append(toDelete, o.ID.String())
			}
		}
		return nil, &apperrors.CascadeRequiredError{Artifact: "chapter_outline", Deletes: toDelete}
	}

	if chapterNumber != maxChapter {
		if err := uc.cascade.DeleteChapterOutlinesFrom(ctx, projectID, chapterNumber); err != nil {
			return nil, err
		}
	}

	var lookup func(int) partContext
	if b.NeedsPartOutlines {
		parts, err := uc.partOutlineRepo.ListByProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		lookup = buildPartLookup(parts)
	}

	var priorOutlines []*outline.ChapterOutline
	for _, o := range existing {
		if o.ChapterNumber < chapterNumber {
			priorOutlines = append(priorOutlines, o)
		}
	}

	pc := partContext{}
	if lookup != nil {
		pc = lookup(chapterNumber)
	}

	resp, err := callChapterOutlineLLMWithPrompt(ctx, uc.gateway, b, userID, priorOutlines, chapterNumber, chapterNumber, pc, prompt)
	if err != nil {
		return nil, err
	}
	if len(resp) != 1 {
		return nil, &apperrors.ParseError{Context: "chapter outline regeneration", Cause: errMismatchedOutlineCount}
	}

	if err := uc.chapterOutlineRepo.DeleteFromNumber(ctx, projectID, chapterNumber); err != nil {
		return nil, err
	}
	regenerated, err := outline.NewChapterOutline(projectID, chapterNumber, resp[0].Title, resp[0].Summary)
	if err != nil {
		return nil, err
	}
	if err := uc.chapterOutlineRepo.Create(ctx, regenerated); err != nil {
		return nil, err
	}

	uc.logger.Info("chapter outline regenerated", "project_id", projectID, "chapter_number", chapterNumber, "cascade_delete", cascadeDelete)
	return regenerated, nil
}

func outlineByNumber(outlines []*outline.ChapterOutline, chapterNumber int) *outline.ChapterOutline {
	for _, o := range outlines {
		if o.ChapterNumber == chapterNumber {
			return o
		}
	}
	return nil
}

var errMismatchedOutlineCount = &apperrors.ValidationError{Field: "chapter_outline_batch", Message: "expected exactly one regenerated outline"}

// callChapterOutlineLLMWithPrompt wraps callChapterOutlineLLM, folding an
// optional free-text user prompt into the surrounding part context so a
// single-chapter regeneration can honor it without changing the shared
// batch helper's signature.
func callChapterOutlineLLMWithPrompt(ctx context.Context, gateway llm.Gateway, b *blueprint.Blueprint, userID string, priorOutlines []*outline.ChapterOutline, batchStart, batchEnd int, pc partContext, prompt string) ([]chapterOutlineEntry, error) {
	if prompt != "" {
		note := &outline.PartOutline{Title: "", Summary: prompt}
		if pc.Current == nil {
			pc.Current = note
		} else {
			merged := *pc.Current
			merged.Summary = pc.Current.Summary + "\n改写要求：" + prompt
			pc.Current = &merged
		}
	}
	return callChapterOutlineLLM(ctx, gateway, b, userID, priorOutlines, batchStart, batchEnd, pc)
}
