package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/ports/repositories"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

// Cascade centralizes the regeneration/cascade-delete rules of §4.13.
// Every deletion here also removes the dependent structured indices and
// vector records for the affected chapters, per §3's ownership rule
// ("updating a chapter's content must first delete prior vector/index
// rows for that (project, chapter)").
type Cascade struct {
	partOutlineRepo  repositories.PartOutlineRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	chapterRepo      repositories.ChapterRepository
	versionRepo      repositories.ChapterVersionRepository
	evaluationRepo   repositories.ChapterEvaluationRepository
	characterStateRepo repositories.CharacterStateIndexRepository
	foreshadowingRepo  repositories.ForeshadowingIndexRepository
	store            vectorstore.Store
}

// NewCascade constructs a Cascade engine.
func NewCascade(
	partOutlineRepo repositories.PartOutlineRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	chapterRepo repositories.ChapterRepository,
	versionRepo repositories.ChapterVersionRepository,
	evaluationRepo repositories.ChapterEvaluationRepository,
	characterStateRepo repositories.CharacterStateIndexRepository,
	foreshadowingRepo repositories.ForeshadowingIndexRepository,
	store vectorstore.Store,
) *Cascade {
	return &Cascade{
		partOutlineRepo:    partOutlineRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		chapterRepo:        chapterRepo,
		versionRepo:        versionRepo,
		evaluationRepo:     evaluationRepo,
		characterStateRepo: characterStateRepo,
		foreshadowingRepo:  foreshadowingRepo,
		store:              store,
	}
}

// DeleteEverything implements "Regenerating Blueprint": delete all
// PartOutline, ChapterOutline, Chapter, indices, and vector records
// (§4.13).
func (c *Cascade) DeleteEverything(ctx context.Context, projectID uuid.UUID) error {
	if err := c.deleteChaptersFrom(ctx, projectID, 1); err != nil {
		return err
	}
	if err := c.chapterOutlineRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := c.partOutlineRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	return c.foreshadowingRepo.DeleteByProject(ctx, projectID.String())
}

// DeleteAllParts implements "Regenerating all parts": delete all
// ChapterOutline and Chapter and dependent indices/vectors; keep
// Blueprint (§4.13).
func (c *Cascade) DeleteAllParts(ctx context.Context, projectID uuid.UUID) error {
	if err := c.deleteChaptersFrom(ctx, projectID, 1); err != nil {
		return err
	}
	if err := c.chapterOutlineRepo.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	return c.foreshadowingRepo.DeleteByProject(ctx, projectID.String())
}

// DeleteLastPart implements "Regenerating last part": delete
// ChapterOutline and Chapter rows whose chapter_number >
// previousPartEndChapter (§4.13).
func (c *Cascade) DeleteLastPart(ctx context.Context, projectID uuid.UUID, previousPartEndChapter int) error {
	fromChapter := previousPartEndChapter + 1
	if err := c.deleteChaptersFrom(ctx, projectID, fromChapter); err != nil {
		return err
	}
	if err := c.chapterOutlineRepo.DeleteFromNumber(ctx, projectID, fromChapter); err != nil {
		return err
	}
	return c.foreshadowingRepo.DeleteFromChapter(ctx, projectID.String(), fromChapter)
}

// DeleteFromPart implements "Regenerating an arbitrary part number P":
// delete all PartOutline where part_number >= P, all ChapterOutline and
// Chapter where chapter_number >= startChapterOfP, and dependent
// indices/vectors (§4.13). Callers must have already enforced
// cascade_delete=true.
func (c *Cascade) DeleteFromPart(ctx context.Context, projectID uuid.UUID, partNumber, startChapterOfPart int) error {
	if err := c.deleteChaptersFrom(ctx, projectID, startChapterOfPart); err != nil {
		return err
	}
	if err := c.chapterOutlineRepo.DeleteFromNumber(ctx, projectID, startChapterOfPart); err != nil {
		return err
	}
	if err := c.partOutlineRepo.DeleteFromNumber(ctx, projectID, partNumber); err != nil {
		return err
	}
	return c.foreshadowingRepo.DeleteFromChapter(ctx, projectID.String(), startChapterOfPart)
}

// DeleteChapterOutlinesFrom implements "Regenerating a non-last
// ChapterOutline C": delete all ChapterOutline and Chapter where
// chapter_number > C and all dependent indices/vectors (§4.13). Callers
// must have already enforced cascade_delete=true for non-last C.
func (c *Cascade) DeleteChapterOutlinesFrom(ctx context.Context, projectID uuid.UUID, afterChapter int) error {
	fromChapter := afterChapter + 1
	if err := c.deleteChaptersFrom(ctx, projectID, fromChapter); err != nil {
		return err
	}
	if err := c.chapterOutlineRepo.DeleteFromNumber(ctx, projectID, fromChapter); err != nil {
		return err
	}
	return c.foreshadowingRepo.DeleteFromChapter(ctx, projectID.String(), fromChapter)
}

// deleteChaptersFrom removes Chapter rows (and their owned
// Versions/Evaluations), the CharacterStateIndex rows, and vector
// records for every chapter_number >= fromChapter.
func (c *Cascade) deleteChaptersFrom(ctx context.Context, projectID uuid.UUID, fromChapter int) error {
	chapters, err := c.chapterRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	var affectedNumbers []int
	for _, ch := range chapters {
		if ch.ChapterNumber < fromChapter {
			continue
		}
		if err := c.versionRepo.DeleteByChapter(ctx, ch.ID); err != nil {
			return err
		}
		if err := c.evaluationRepo.DeleteByChapter(ctx, ch.ID); err != nil {
			return err
		}
		if err := c.characterStateRepo.DeleteByChapter(ctx, projectID.String(), ch.ChapterNumber); err != nil {
			return err
		}
		affectedNumbers = append(affectedNumbers, ch.ChapterNumber)
	}
	if err := c.chapterRepo.DeleteFromNumber(ctx, projectID, fromChapter); err != nil {
		return err
	}
	if len(affectedNumbers) > 0 {
		if err := c.store.DeleteByChapters(ctx, projectID.String(), affectedNumbers); err != nil {
			return err
		}
	}
	return nil
}
