package generation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/core/outline"
)

type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters []*chapter.Chapter
	deletedFrom []int
}

func (f *fakeChapterRepo) Create(ctx context.Context, c *chapter.Chapter) error { return nil }
func (f *fakeChapterRepo) GetByNumber(ctx context.Context, projectID uuid.UUID, n int) (*chapter.Chapter, error) {
	return nil, nil
}
func (f *fakeChapterRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*chapter.Chapter, error) {
	return f.chapters, nil
}
func (f *fakeChapterRepo) Update(ctx context.Context, c *chapter.Chapter) error { return nil }
func (f *fakeChapterRepo) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFrom = append(f.deletedFrom, fromNumber)
	return nil
}
func (f *fakeChapterRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error { return nil }

type fakeVersionRepo struct {
	mu             sync.Mutex
	deletedChapters []uuid.UUID
}

func (f *fakeVersionRepo) Create(ctx context.Context, v *chapter.Version) error { return nil }
func (f *fakeVersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*chapter.Version, error) {
	return nil, nil
}
func (f *fakeVersionRepo) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Version, error) {
	return nil, nil
}
func (f *fakeVersionRepo) Update(ctx context.Context, v *chapter.Version) error { return nil }
func (f *fakeVersionRepo) DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedChapters = append(f.deletedChapters, chapterID)
	return nil
}

type fakeEvaluationRepo struct{}

func (f *fakeEvaluationRepo) Create(ctx context.Context, e *chapter.Evaluation) error { return nil }
func (f *fakeEvaluationRepo) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Evaluation, error) {
	return nil, nil
}
func (f *fakeEvaluationRepo) DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error { return nil }

type fakeCharacterStateRepo struct {
	mu      sync.Mutex
	deleted []int
}

func (f *fakeCharacterStateRepo) DeleteByChapter(ctx context.Context, projectID string, chapterNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, chapterNumber)
	return nil
}
func (f *fakeCharacterStateRepo) InsertMany(ctx context.Context, rows []*index.CharacterStateRow) error {
	return nil
}
func (f *fakeCharacterStateRepo) History(ctx context.Context, projectID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error) {
	return nil, nil
}
func (f *fakeCharacterStateRepo) ChapterStates(ctx context.Context, projectID string, chapterNumber int) (map[string]*index.CharacterStateRow, error) {
	return nil, nil
}

type fakeForeshadowingRepo struct {
	mu                sync.Mutex
	deletedByProject  []string
	deletedFromChapter []int
}

func (f *fakeForeshadowingRepo) Insert(ctx context.Context, row *index.ForeshadowingRow) error { return nil }
func (f *fakeForeshadowingRepo) FindBySimilarityKey(ctx context.Context, projectID, key string) (*index.ForeshadowingRow, error) {
	return nil, nil
}
func (f *fakeForeshadowingRepo) UpdateResolution(ctx context.Context, id uuid.UUID, resolvedChapter int, resolution string) error {
	return nil
}
func (f *fakeForeshadowingRepo) Pending(ctx context.Context, projectID string, currentChapter int, includeOverdue bool) ([]*index.ForeshadowingRow, error) {
	return nil, nil
}
func (f *fakeForeshadowingRepo) DeleteByProject(ctx context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedByProject = append(f.deletedByProject, projectID)
	return nil
}
func (f *fakeForeshadowingRepo) DeleteFromChapter(ctx context.Context, projectID string, fromChapter int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFromChapter = append(f.deletedFromChapter, fromChapter)
	return nil
}

type fakePartOutlineRepo struct {
	mu            sync.Mutex
	deletedFrom   []int
	deletedByProj bool
}

func (f *fakePartOutlineRepo) Create(ctx context.Context, p *outline.PartOutline) error { return nil }
func (f *fakePartOutlineRepo) GetByNumber(ctx context.Context, projectID uuid.UUID, partNumber int) (*outline.PartOutline, error) {
	return nil, nil
}
func (f *fakePartOutlineRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.PartOutline, error) {
	return nil, nil
}
func (f *fakePartOutlineRepo) Update(ctx context.Context, p *outline.PartOutline) error { return nil }
func (f *fakePartOutlineRepo) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFrom = append(f.deletedFrom, fromNumber)
	return nil
}
func (f *fakePartOutlineRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedByProj = true
	return nil
}

type fakeChapterOutlineRepo struct {
	mu            sync.Mutex
	deletedFrom   []int
	deletedByProj bool
}

func (f *fakeChapterOutlineRepo) Create(ctx context.Context, c *outline.ChapterOutline) error { return nil }
func (f *fakeChapterOutlineRepo) GetByNumber(ctx context.Context, projectID uuid.UUID, chapterNumber int) (*outline.ChapterOutline, error) {
	return nil, nil
}
func (f *fakeChapterOutlineRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.ChapterOutline, error) {
	return nil, nil
}
func (f *fakeChapterOutlineRepo) Update(ctx context.Context, c *outline.ChapterOutline) error { return nil }
func (f *fakeChapterOutlineRepo) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFrom = append(f.deletedFrom, fromNumber)
	return nil
}
func (f *fakeChapterOutlineRepo) DeleteLastN(ctx context.Context, projectID uuid.UUID, n int) error {
	return nil
}
func (f *fakeChapterOutlineRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedByProj = true
	return nil
}

type stubVectorStore struct {
	mu                    sync.Mutex
	deletedChapterNumbers [][]int
}

func (s *stubVectorStore) UpsertChunks(ctx context.Context, records []*memory.Chunk) error { return nil }
func (s *stubVectorStore) UpsertSummaries(ctx context.Context, records []*memory.Summary) error {
	return nil
}
func (s *stubVectorStore) QueryChunks(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Chunk, error) {
	return nil, nil
}
func (s *stubVectorStore) QuerySummaries(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Summary, error) {
	return nil, nil
}
func (s *stubVectorStore) DeleteByChapters(ctx context.Context, projectID string, chapterNumbers []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedChapterNumbers = append(s.deletedChapterNumbers, chapterNumbers)
	return nil
}
func (s *stubVectorStore) Enabled() bool { return true }

func newCascadeFixture() (*Cascade, *fakePartOutlineRepo, *fakeChapterOutlineRepo, *fakeChapterRepo, *fakeVersionRepo, *fakeCharacterStateRepo, *fakeForeshadowingRepo, *stubVectorStore) {
	partRepo := &fakePartOutlineRepo{}
	chapterOutlineRepo := &fakeChapterOutlineRepo{}
	chapterRepo := &fakeChapterRepo{}
	versionRepo := &fakeVersionRepo{}
	charRepo := &fakeCharacterStateRepo{}
	foreshadowRepo := &fakeForeshadowingRepo{}
	store := &stubVectorStore{}

	c := NewCascade(partRepo, chapterOutlineRepo, chapterRepo, versionRepo, &fakeEvaluationRepo{}, charRepo, foreshadowRepo, store)
	return c, partRepo, chapterOutlineRepo, chapterRepo, versionRepo, charRepo, foreshadowRepo, store
}

func mkChapter(projectID uuid.UUID, number int) *chapter.Chapter {
	return &chapter.Chapter{ID: uuid.New(), ProjectID: projectID, ChapterNumber: number, Status: chapter.StatusNotGenerated}
}

func TestCascade_DeleteEverything_RemovesAllChapterAndOutlineData(t *testing.T) {
	projectID := uuid.New()
	c, partRepo, chOutlineRepo, chRepo, versionRepo, charRepo, foreshadowRepo, store := newCascadeFixture()
	chRepo.chapters = []*chapter.Chapter{mkChapter(projectID, 1), mkChapter(projectID, 2), mkChapter(projectID, 3)}

	if err := c.DeleteEverything(context.Background(), projectID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versionRepo.deletedChapters) != 3 {
		t.Errorf("expected versions deleted for all 3 chapters, got %d", len(versionRepo.deletedChapters))
	}
	if len(charRepo.deleted) != 3 {
		t.Errorf("expected character-state index rows deleted for all 3 chapters, got %d", len(charRepo.deleted))
	}
	if chRepo.deletedFrom[0] != 1 {
		t.Errorf("expected chapters deleted from 1, got %v", chRepo.deletedFrom)
	}
	if !chOutlineRepo.deletedByProj || !partRepo.deletedByProj {
		t.Error("expected chapter outlines and part outlines deleted project-wide")
	}
	if len(foreshadowRepo.deletedByProject) != 1 {
		t.Error("expected foreshadowing index deleted project-wide")
	}
	if len(store.deletedChapterNumbers) != 1 || len(store.deletedChapterNumbers[0]) != 3 {
		t.Errorf("expected vector store delete for all 3 chapter numbers, got %v", store.deletedChapterNumbers)
	}
}

func TestCascade_DeleteAllParts_KeepsBlueprint(t *testing.T) {
	projectID := uuid.New()
	c, partRepo, chOutlineRepo, chRepo, _, _, _, _ := newCascadeFixture()
	chRepo.chapters = []*chapter.Chapter{mkChapter(projectID, 1)}

	if err := c.DeleteAllParts(context.Background(), projectID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chOutlineRepo.deletedByProj {
		t.Error("expected chapter outlines deleted project-wide")
	}
	if partRepo.deletedByProj || len(partRepo.deletedFrom) != 0 {
		t.Error("expected part outlines (blueprint's parts) to be untouched")
	}
}

func TestCascade_DeleteLastPart_OnlyDeletesChaptersAfterBoundary(t *testing.T) {
	projectID := uuid.New()
	c, _, chOutlineRepo, chRepo, _, _, foreshadowRepo, _ := newCascadeFixture()
	chRepo.chapters = []*chapter.Chapter{mkChapter(projectID, 1), mkChapter(projectID, 2), mkChapter(projectID, 3), mkChapter(projectID, 4)}

	if err := c.DeleteLastPart(context.Background(), projectID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chRepo.deletedFrom[0] != 3 {
		t.Errorf("expected chapters deleted from 3, got %v", chRepo.deletedFrom)
	}
	if chOutlineRepo.deletedFrom[0] != 3 {
		t.Errorf("expected chapter outlines deleted from 3, got %v", chOutlineRepo.deletedFrom)
	}
	if foreshadowRepo.deletedFromChapter[0] != 3 {
		t.Errorf("expected foreshadowing deleted from chapter 3, got %v", foreshadowRepo.deletedFromChapter)
	}
}

func TestCascade_DeleteFromPart_DeletesPartAndChapterOutlinesFromBoundaries(t *testing.T) {
	projectID := uuid.New()
	c, partRepo, chOutlineRepo, chRepo, _, _, _, _ := newCascadeFixture()
	chRepo.chapters = []*chapter.Chapter{mkChapter(projectID, 5), mkChapter(projectID, 6)}

	if err := c.DeleteFromPart(context.Background(), projectID, 3, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partRepo.deletedFrom[0] != 3 {
		t.Errorf("expected part outlines deleted from part 3, got %v", partRepo.deletedFrom)
	}
	if chOutlineRepo.deletedFrom[0] != 5 {
		t.Errorf("expected chapter outlines deleted from chapter 5, got %v", chOutlineRepo.deletedFrom)
	}
}

func TestCascade_deleteChaptersFrom_SkipsChaptersBeforeBoundaryAndSkipsEmptyVectorDelete(t *testing.T) {
	projectID := uuid.New()
	c, _, _, chRepo, versionRepo, charRepo, _, store := newCascadeFixture()
	chRepo.chapters = []*chapter.Chapter{mkChapter(projectID, 1), mkChapter(projectID, 2)}

	if err := c.DeleteLastPart(context.Background(), projectID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versionRepo.deletedChapters) != 0 || len(charRepo.deleted) != 0 {
		t.Error("expected no per-chapter deletes when every chapter is below the boundary")
	}
	if len(store.deletedChapterNumbers) != 0 {
		t.Error("expected no vector store call when no chapters were affected")
	}
}
