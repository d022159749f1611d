// Package backfill implements the C4/C5 batch backfill referenced by
// SPEC_FULL.md's dependency table and resolved Open Question #1
// (spec.md line ~365: "each parallel task obtains its own transaction"):
// re-running analysis (C5) and vector ingestion (C4) for chapters that
// already have a selected version but are missing analysis_data, bounded
// by a semaphore of configurable size (default 3, §5). Generalized from
// generation.SelectChapterVersionUseCase's post-selection body — the
// per-chapter sequence (analyze, set analysis, update C6/C7 indices,
// ingest vectors) is identical, just replayed in bulk instead of once
// per selection — and from the teacher's hand-rolled fan-out in
// entity_extraction/phase2_entrypoint.go, generalized here to
// golang.org/x/sync/errgroup per SPEC_FULL.md's dependency table.
package backfill

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/novelforge/engine/internal/application/analysis"
	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/ingest"
	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// DefaultMaxParallel is the default backfill concurrency (§5).
const DefaultMaxParallel = 3

// UseCase re-analyzes and re-ingests chapters missing analysis_data.
type UseCase struct {
	chapterRepo        repositories.ChapterRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	versionRepo        repositories.ChapterVersionRepository
	blueprintRepo      repositories.BlueprintRepository
	tx                 repositories.Transaction
	analyzer           *analysis.Analyzer
	characterIdx       *indices.CharacterStateIndex
	foreshadowing      *indices.ForeshadowingIndex
	ingestor           *ingest.ChapterIngestor
	logger             *logger.Logger
	maxParallel        int
}

// New constructs a backfill UseCase. maxParallel <= 0 uses DefaultMaxParallel.
func New(
	chapterRepo repositories.ChapterRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	versionRepo repositories.ChapterVersionRepository,
	blueprintRepo repositories.BlueprintRepository,
	tx repositories.Transaction,
	analyzer *analysis.Analyzer,
	characterIdx *indices.CharacterStateIndex,
	foreshadowing *indices.ForeshadowingIndex,
	ingestor *ingest.ChapterIngestor,
	log *logger.Logger,
	maxParallel int,
) *UseCase {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &UseCase{
		chapterRepo:        chapterRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		versionRepo:        versionRepo,
		blueprintRepo:      blueprintRepo,
		tx:                 tx,
		analyzer:           analyzer,
		characterIdx:       characterIdx,
		foreshadowing:      foreshadowing,
		ingestor:           ingestor,
		logger:             log,
		maxParallel:        maxParallel,
	}
}

// Result captures one chapter's backfill outcome.
type Result struct {
	ChapterNumber int
	Err           error
}

// Execute backfills every chapter of projectID that has a selected
// version but no analysis_data (chapter status is not checked), each in
// its own transaction, up
// to maxParallel concurrently. One chapter's failure never aborts its
// siblings (§9 design notes' error-isolation rule, same as C12's
// candidate-version fan-out).
func (uc *UseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string) ([]Result, error) {
	chapters, err := uc.chapterRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var pending []*chapter.Chapter
	for _, ch := range chapters {
		if ch.SelectedVersionID != nil && ch.AnalysisData == nil {
			pending = append(pending, ch)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	results := make([]Result, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.maxParallel)
	for i, ch := range pending {
		i, ch := i, ch
		g.Go(func() error {
			err := uc.tx.WithinTransaction(gctx, func(txCtx context.Context) error {
				return uc.backfillOne(txCtx, b.Title, projectID, userID, ch)
			})
			results[i] = Result{ChapterNumber: ch.ChapterNumber, Err: err}
			if err != nil {
				uc.logger.Error("backfill chapter failed", "project_id", projectID, "chapter_number", ch.ChapterNumber, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() // per-chapter errors are isolated into results, not propagated

	return results, nil
}

func (uc *UseCase) backfillOne(ctx context.Context, novelTitle string, projectID uuid.UUID, userID string, ch *chapter.Chapter) error {
	versions, err := uc.versionRepo.ListByChapter(ctx, ch.ID)
	if err != nil {
		return err
	}
	var content string
	for _, v := range versions {
		if ch.SelectedVersionID != nil && v.ID == *ch.SelectedVersionID {
			content = v.Content
			break
		}
	}
	if content == "" {
		return nil
	}

	co, err := uc.chapterOutlineRepo.GetByNumber(ctx, projectID, ch.ChapterNumber)
	if err != nil {
		return err
	}

	data, err := uc.analyzer.Analyze(ctx, userID, content, co.Title, ch.ChapterNumber, novelTitle)
	if err != nil {
		return err
	}
	ch.SetAnalysis(data)
	if err := uc.chapterRepo.Update(ctx, ch); err != nil {
		return err
	}

	projectIDStr := projectID.String()
	if err := uc.characterIdx.Update(ctx, projectIDStr, ch.ChapterNumber, data.CharacterStates); err != nil {
		return err
	}
	if err := uc.foreshadowing.Ingest(ctx, projectIDStr, ch.ChapterNumber, data.Foreshadowing); err != nil {
		return err
	}

	summary := ""
	if ch.RealSummary != nil {
		summary = *ch.RealSummary
	}
	return uc.ingestor.IngestChapter(ctx, projectIDStr, ch.ChapterNumber, co.Title, content, summary, userID)
}
