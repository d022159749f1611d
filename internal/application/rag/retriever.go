package rag

import (
	"context"
	"math"
	"sort"

	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

// RetrieverWeights carries C9's tunables (§4.9 defaults).
type RetrieverWeights struct {
	SimilarityWeight float64
	RecencyWeight    float64
	NearbyRange      int
	NearbyBonus      float64
}

// DefaultRetrieverWeights returns the documented defaults.
func DefaultRetrieverWeights() RetrieverWeights {
	return RetrieverWeights{
		SimilarityWeight: 0.7,
		RecencyWeight:    0.3,
		NearbyRange:      5,
		NearbyBonus:      0.2,
	}
}

// TemporalRetriever implements C9 (§4.9).
type TemporalRetriever struct {
	store   vectorstore.Store
	weights RetrieverWeights
}

// NewTemporalRetriever constructs a TemporalRetriever.
func NewTemporalRetriever(store vectorstore.Store, weights RetrieverWeights) *TemporalRetriever {
	return &TemporalRetriever{store: store, weights: weights}
}

// RetrieveChunks implements the §4.9 algorithm for the chunks collection.
func (t *TemporalRetriever) RetrieveChunks(ctx context.Context, projectID string, queryEmbedding []float32, targetChapter, totalChapters, topK int) ([]*memory.Chunk, error) {
	if !t.store.Enabled() {
		return nil, nil
	}
	candidates, err := t.store.QueryChunks(ctx, projectID, queryEmbedding, topK*2)
	if err != nil {
		return nil, err
	}
	type scored struct {
		chunk *memory.Chunk
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		final := t.finalScore(c.Score, targetChapter, c.ChapterNumber, totalChapters)
		scoredList = append(scoredList, scored{chunk: c, score: final})
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })
	if len(scoredList) > topK {
		scoredList = scoredList[:topK]
	}
	out := make([]*memory.Chunk, len(scoredList))
	for i, s := range scoredList {
		s.chunk.Score = s.score
		out[i] = s.chunk
	}
	return out, nil
}

// RetrieveSummaries is identical to RetrieveChunks except over the
// summaries collection (§4.9).
func (t *TemporalRetriever) RetrieveSummaries(ctx context.Context, projectID string, queryEmbedding []float32, targetChapter, totalChapters, topK int) ([]*memory.Summary, error) {
	if !t.store.Enabled() {
		return nil, nil
	}
	candidates, err := t.store.QuerySummaries(ctx, projectID, queryEmbedding, topK*2)
	if err != nil {
		return nil, err
	}
	type scored struct {
		summary *memory.Summary
		score   float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		final := t.finalScore(s.Score, targetChapter, s.ChapterNumber, totalChapters)
		scoredList = append(scoredList, scored{summary: s, score: final})
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })
	if len(scoredList) > topK {
		scoredList = scoredList[:topK]
	}
	out := make([]*memory.Summary, len(scoredList))
	for i, s := range scoredList {
		s.summary.Score = s.score
		out[i] = s.summary
	}
	return out, nil
}

// finalScore implements §4.9 steps 2-4.
func (t *TemporalRetriever) finalScore(cosineDistance float64, targetChapter, sourceChapter, totalChapters int) float64 {
	similarity := 1 - cosineDistance
	total := float64(totalChapters)
	if total <= 0 {
		total = 1
	}
	distance := math.Abs(float64(targetChapter - sourceChapter))
	recency := math.Exp(-3 * distance / total)

	final := t.weights.SimilarityWeight*similarity + t.weights.RecencyWeight*recency

	if t.weights.NearbyRange > 0 && int(distance) <= t.weights.NearbyRange {
		final += t.weights.NearbyBonus * (1 - distance/float64(t.weights.NearbyRange))
	}
	return final
}
