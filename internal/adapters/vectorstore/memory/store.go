// Package memory implements an in-process cosine-similarity vector
// store, serving the §4.2 disablement mode and unit tests without a
// Postgres/pgvector dependency.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Store is an in-memory vectorstore.Store. When disabled, every write is
// a no-op and every query returns an empty list (§4.2).
type Store struct {
	mu        sync.RWMutex
	enabled   bool
	chunks    map[string]*memory.Chunk
	summaries map[string]*memory.Summary
}

// NewStore creates an in-memory store. Pass enabled=false to run in
// disablement mode (§4.2): RAG retrieval then returns nothing and C10
// falls back to whatever context tiers don't depend on C2.
func NewStore(enabled bool) *Store {
	return &Store{
		enabled:   enabled,
		chunks:    map[string]*memory.Chunk{},
		summaries: map[string]*memory.Summary{},
	}
}

func (s *Store) Enabled() bool { return s.enabled }

func (s *Store) UpsertChunks(ctx context.Context, records []*memory.Chunk) error {
	if !s.enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range records {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *Store) UpsertSummaries(ctx context.Context, records []*memory.Summary) error {
	if !s.enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sm := range records {
		s.summaries[sm.ID] = sm
	}
	return nil
}

func (s *Store) QueryChunks(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Chunk, error) {
	if !s.enabled {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*memory.Chunk
	for _, c := range s.chunks {
		if c.ProjectID != projectID {
			continue
		}
		cp := *c
		cp.Score = cosineDistance(embedding, c.Embedding)
		matches = append(matches, &cp)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score < matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) QuerySummaries(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Summary, error) {
	if !s.enabled {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*memory.Summary
	for _, sm := range s.summaries {
		if sm.ProjectID != projectID {
			continue
		}
		cp := *sm
		cp.Score = cosineDistance(embedding, sm.Embedding)
		matches = append(matches, &cp)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score < matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) DeleteByChapters(ctx context.Context, projectID string, chapterNumbers []int) error {
	if !s.enabled {
		return nil
	}
	target := make(map[int]bool, len(chapterNumbers))
	for _, n := range chapterNumbers {
		target[n] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.ProjectID == projectID && target[c.ChapterNumber] {
			delete(s.chunks, id)
		}
	}
	for id, sm := range s.summaries {
		if sm.ProjectID == projectID && target[sm.ChapterNumber] {
			delete(s.summaries, id)
		}
	}
	return nil
}

// cosineDistance returns 1 - cosine_similarity, matching pgvector's `<=>`
// operator so the two stores rank results identically.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - similarity
}
