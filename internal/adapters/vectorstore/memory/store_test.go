package memory

import (
	"context"
	"testing"

	"github.com/novelforge/engine/internal/core/memory"
)

func TestStore_QueryChunks_ranksBySimilarity(t *testing.T) {
	s := NewStore(true)
	ctx := context.Background()

	records := []*memory.Chunk{
		memory.NewChunk("p1", 1, 0, "Ch1", "far", []float32{1, 0}, nil),
		memory.NewChunk("p1", 2, 0, "Ch2", "near", []float32{0, 1}, nil),
		memory.NewChunk("p2", 1, 0, "Other project", "ignored", []float32{0, 1}, nil),
	}
	if err := s.UpsertChunks(ctx, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.QueryChunks(ctx, "p1", []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results scoped to p1, got %d", len(results))
	}
	if results[0].Content != "near" {
		t.Errorf("expected closest chunk first, got %q", results[0].Content)
	}
	if results[0].Score > results[1].Score {
		t.Errorf("expected ascending distance order, got %v then %v", results[0].Score, results[1].Score)
	}
}

func TestStore_DeleteByChapters(t *testing.T) {
	s := NewStore(true)
	ctx := context.Background()

	chunks := []*memory.Chunk{
		memory.NewChunk("p1", 1, 0, "Ch1", "a", []float32{1, 0}, nil),
		memory.NewChunk("p1", 2, 0, "Ch2", "b", []float32{0, 1}, nil),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.DeleteByChapters(ctx, "p1", []int{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.QueryChunks(ctx, "p1", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 chunk left after deleting chapter 1, got %d", len(results))
	}
	if results[0].ChapterNumber != 2 {
		t.Errorf("expected remaining chunk from chapter 2, got chapter %d", results[0].ChapterNumber)
	}
}

func TestStore_disabled_isNoOp(t *testing.T) {
	s := NewStore(false)
	ctx := context.Background()

	if s.Enabled() {
		t.Fatal("expected disabled store to report Enabled() == false")
	}

	if err := s.UpsertChunks(ctx, []*memory.Chunk{memory.NewChunk("p1", 1, 0, "Ch1", "a", []float32{1, 0}, nil)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.QueryChunks(ctx, "p1", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results in disablement mode, got %v", results)
	}
}
