package backfill

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	vectormemory "github.com/novelforge/engine/internal/adapters/vectorstore/memory"
	"github.com/novelforge/engine/internal/application/analysis"
	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/ingest"
	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
)

type fakeGateway struct {
	mu        sync.Mutex
	completes int
	failFor   string // chapter title that should fail analysis
}

func (g *fakeGateway) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	g.mu.Lock()
	g.completes++
	g.mu.Unlock()
	for _, m := range messages {
		if g.failFor != "" && strings.Contains(m.Content, g.failFor) {
			return "", fmt.Errorf("simulated analysis failure for %s", g.failFor)
		}
	}
	return `{"summaries":{"compressed":"a short summary"},"character_states":{},"foreshadowing":{"planted":[],"resolved":[],"tensions":[]},"key_events":[]}`, nil
}
func (g *fakeGateway) Embed(ctx context.Context, text string, opts llm.EmbedOptions) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (g *fakeGateway) ResolveConfig(ctx context.Context, userID string) (*llm.ResolvedConfig, error) {
	return &llm.ResolvedConfig{}, nil
}
func (g *fakeGateway) CheckQuota(ctx context.Context, userID string) error            { return nil }
func (g *fakeGateway) IncrementQuota(ctx context.Context, userID string, n int) error { return nil }

type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters map[int]*chapter.Chapter
}

func newFakeChapterRepo() *fakeChapterRepo { return &fakeChapterRepo{chapters: map[int]*chapter.Chapter{}} }
func (r *fakeChapterRepo) Create(ctx context.Context, c *chapter.Chapter) error { return nil }
func (r *fakeChapterRepo) GetByNumber(ctx context.Context, projectID uuid.UUID, n int) (*chapter.Chapter, error) {
	return r.chapters[n], nil
}
func (r *fakeChapterRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*chapter.Chapter, error) {
	var out []*chapter.Chapter
	for _, c := range r.chapters {
		out = append(out, c)
	}
	return out, nil
}
func (r *fakeChapterRepo) Update(ctx context.Context, c *chapter.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chapters[c.ChapterNumber] = c
	return nil
}
func (r *fakeChapterRepo) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, n int) error { return nil }
func (r *fakeChapterRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error          { return nil }

type fakeOutlineRepo struct {
	outlines map[int]*outline.ChapterOutline
}

func (r *fakeOutlineRepo) Create(ctx context.Context, c *outline.ChapterOutline) error { return nil }
func (r *fakeOutlineRepo) GetByNumber(ctx context.Context, projectID uuid.UUID, n int) (*outline.ChapterOutline, error) {
	return r.outlines[n], nil
}
func (r *fakeOutlineRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.ChapterOutline, error) {
	return nil, nil
}
func (r *fakeOutlineRepo) Update(ctx context.Context, c *outline.ChapterOutline) error       { return nil }
func (r *fakeOutlineRepo) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, n int) error { return nil }
func (r *fakeOutlineRepo) DeleteLastN(ctx context.Context, projectID uuid.UUID, n int) error      { return nil }

type fakeVersionRepo struct {
	versions map[uuid.UUID][]*chapter.Version
}

func (r *fakeVersionRepo) Create(ctx context.Context, v *chapter.Version) error { return nil }
func (r *fakeVersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*chapter.Version, error) {
	return nil, nil
}
func (r *fakeVersionRepo) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Version, error) {
	return r.versions[chapterID], nil
}
func (r *fakeVersionRepo) Update(ctx context.Context, v *chapter.Version) error                { return nil }
func (r *fakeVersionRepo) DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error { return nil }

type fakeBlueprintRepo struct {
	b *blueprint.Blueprint
}

func (r *fakeBlueprintRepo) Create(ctx context.Context, b *blueprint.Blueprint) error { return nil }
func (r *fakeBlueprintRepo) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*blueprint.Blueprint, error) {
	return r.b, nil
}
func (r *fakeBlueprintRepo) Update(ctx context.Context, b *blueprint.Blueprint) error  { return nil }
func (r *fakeBlueprintRepo) Replace(ctx context.Context, b *blueprint.Blueprint) error { return nil }
func (r *fakeBlueprintRepo) DeleteByProjectID(ctx context.Context, projectID uuid.UUID) error {
	return nil
}
func (r *fakeBlueprintRepo) ReplaceCharacters(ctx context.Context, blueprintID uuid.UUID, chars []*blueprint.Character) error {
	return nil
}
func (r *fakeBlueprintRepo) ReplaceRelationships(ctx context.Context, blueprintID uuid.UUID, rels []*blueprint.Relationship) error {
	return nil
}

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCharacterStateRepo struct{}

func (fakeCharacterStateRepo) DeleteByChapter(ctx context.Context, projectID string, chapterNumber int) error {
	return nil
}
func (fakeCharacterStateRepo) InsertMany(ctx context.Context, rows []*index.CharacterStateRow) error {
	return nil
}
func (fakeCharacterStateRepo) History(ctx context.Context, projectID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error) {
	return nil, nil
}
func (fakeCharacterStateRepo) ChapterStates(ctx context.Context, projectID string, chapterNumber int) (map[string]*index.CharacterStateRow, error) {
	return nil, nil
}

type fakeForeshadowingRepo struct{}

func (fakeForeshadowingRepo) Insert(ctx context.Context, row *index.ForeshadowingRow) error {
	return nil
}
func (fakeForeshadowingRepo) FindBySimilarityKey(ctx context.Context, projectID, key string) (*index.ForeshadowingRow, error) {
	return nil, nil
}
func (fakeForeshadowingRepo) UpdateResolution(ctx context.Context, id uuid.UUID, resolvedChapter int, resolution string) error {
	return nil
}
func (fakeForeshadowingRepo) Pending(ctx context.Context, projectID string, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error) {
	return nil, nil
}
func (fakeForeshadowingRepo) DeleteByProject(ctx context.Context, projectID string) error { return nil }
func (fakeForeshadowingRepo) DeleteFromChapter(ctx context.Context, projectID string, fromChapter int) error {
	return nil
}

func newTestUseCase(gw *fakeGateway, chapterRepo *fakeChapterRepo, outlineRepo *fakeOutlineRepo, versionRepo *fakeVersionRepo, blueprintRepo *fakeBlueprintRepo) *UseCase {
	store := vectormemory.NewStore(true)
	characterIdx := indices.NewCharacterStateIndex(fakeCharacterStateRepo{})
	foreshadow := indices.NewForeshadowingIndex(fakeForeshadowingRepo{})
	analyzer := analysis.NewAnalyzer(gw)
	ingestor := ingest.NewChapterIngestor(store, gw, ingest.DefaultSplitOptions())
	return New(chapterRepo, outlineRepo, versionRepo, blueprintRepo, fakeTx{}, analyzer, characterIdx, foreshadow, ingestor, logger.New(), 0)
}

func TestBackfill_skipsChaptersWithAnalysisOrNoSelection(t *testing.T) {
	projectID := uuid.New()
	versionID := uuid.New()
	chapterID := uuid.New()

	chapterRepo := newFakeChapterRepo()
	chapterRepo.chapters[1] = &chapter.Chapter{ID: chapterID, ProjectID: projectID, ChapterNumber: 1, SelectedVersionID: &versionID, AnalysisData: nil}
	chapterRepo.chapters[2] = &chapter.Chapter{ID: uuid.New(), ProjectID: projectID, ChapterNumber: 2, SelectedVersionID: nil}
	chapterRepo.chapters[3] = &chapter.Chapter{ID: uuid.New(), ProjectID: projectID, ChapterNumber: 3, SelectedVersionID: &versionID, AnalysisData: chapter.Empty()}

	outlineRepo := &fakeOutlineRepo{outlines: map[int]*outline.ChapterOutline{1: {Title: "Ch1"}}}
	versionRepo := &fakeVersionRepo{versions: map[uuid.UUID][]*chapter.Version{chapterID: {{ID: versionID, ChapterID: chapterID, Content: "chapter one content"}}}}
	blueprintRepo := &fakeBlueprintRepo{b: &blueprint.Blueprint{ProjectID: projectID, Title: "My Novel"}}
	gw := &fakeGateway{}

	uc := newTestUseCase(gw, chapterRepo, outlineRepo, versionRepo, blueprintRepo)

	results, err := uc.Execute(context.Background(), projectID, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 chapter backfilled, got %d: %+v", len(results), results)
	}
	if results[0].ChapterNumber != 1 {
		t.Errorf("expected chapter 1 backfilled, got %d", results[0].ChapterNumber)
	}
	if results[0].Err != nil {
		t.Errorf("unexpected per-chapter error: %v", results[0].Err)
	}
	if gw.completes != 1 {
		t.Errorf("expected exactly 1 analysis call, got %d", gw.completes)
	}
	if chapterRepo.chapters[1].AnalysisData == nil {
		t.Error("expected chapter 1's analysis_data to be set after backfill")
	}
}

func TestBackfill_isolatesPerChapterFailures(t *testing.T) {
	projectID := uuid.New()
	v1, v2 := uuid.New(), uuid.New()
	c1, c2 := uuid.New(), uuid.New()

	chapterRepo := newFakeChapterRepo()
	chapterRepo.chapters[1] = &chapter.Chapter{ID: c1, ProjectID: projectID, ChapterNumber: 1, SelectedVersionID: &v1}
	chapterRepo.chapters[2] = &chapter.Chapter{ID: c2, ProjectID: projectID, ChapterNumber: 2, SelectedVersionID: &v2}

	outlineRepo := &fakeOutlineRepo{outlines: map[int]*outline.ChapterOutline{
		1: {Title: "Good Chapter"},
		2: {Title: "Bad Chapter"},
	}}
	versionRepo := &fakeVersionRepo{versions: map[uuid.UUID][]*chapter.Version{
		c1: {{ID: v1, ChapterID: c1, Content: "fine content"}},
		c2: {{ID: v2, ChapterID: c2, Content: "problem content"}},
	}}
	blueprintRepo := &fakeBlueprintRepo{b: &blueprint.Blueprint{ProjectID: projectID, Title: "My Novel"}}
	gw := &fakeGateway{failFor: "Bad Chapter"}

	uc := newTestUseCase(gw, chapterRepo, outlineRepo, versionRepo, blueprintRepo)

	results, err := uc.Execute(context.Background(), projectID, "user-1")
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var sawSuccess, sawFailure bool
	for _, r := range results {
		if r.ChapterNumber == 1 && r.Err == nil {
			sawSuccess = true
		}
		if r.ChapterNumber == 2 && r.Err != nil {
			sawFailure = true
		}
	}
	if !sawSuccess {
		t.Error("expected chapter 1 to succeed despite chapter 2 failing")
	}
	if !sawFailure {
		t.Error("expected chapter 2's failure to be isolated into its own result")
	}
}

func TestBackfill_noopWhenNothingPending(t *testing.T) {
	projectID := uuid.New()
	chapterRepo := newFakeChapterRepo()
	chapterRepo.chapters[1] = &chapter.Chapter{ID: uuid.New(), ProjectID: projectID, ChapterNumber: 1, AnalysisData: chapter.Empty(), SelectedVersionID: func() *uuid.UUID { id := uuid.New(); return &id }()}

	outlineRepo := &fakeOutlineRepo{outlines: map[int]*outline.ChapterOutline{}}
	versionRepo := &fakeVersionRepo{versions: map[uuid.UUID][]*chapter.Version{}}
	blueprintRepo := &fakeBlueprintRepo{b: &blueprint.Blueprint{ProjectID: projectID, Title: "My Novel"}}
	gw := &fakeGateway{}

	uc := newTestUseCase(gw, chapterRepo, outlineRepo, versionRepo, blueprintRepo)

	results, err := uc.Execute(context.Background(), projectID, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results when nothing is pending, got %+v", results)
	}
	if gw.completes != 0 {
		t.Errorf("expected no analysis calls, got %d", gw.completes)
	}
}
