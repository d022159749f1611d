// Package vectorstore declares the C2 port: two collections (chunks and
// summaries), each project/chapter tagged, queried by cosine similarity
// (§4.2).
package vectorstore

import (
	"context"

	"github.com/novelforge/engine/internal/core/memory"
)

// Store is the C2 vector store contract.
type Store interface {
	UpsertChunks(ctx context.Context, records []*memory.Chunk) error
	UpsertSummaries(ctx context.Context, records []*memory.Summary) error

	// QueryChunks returns chunks sorted by ascending cosine distance
	// (smaller = more similar), each carrying its Score.
	QueryChunks(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Chunk, error)
	QuerySummaries(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Summary, error)

	// DeleteByChapters deletes chunks and summaries for the given
	// (projectID, chapterNumber) pairs (§4.2).
	DeleteByChapters(ctx context.Context, projectID string, chapterNumbers []int) error

	// Enabled reports whether the store is active; when false, every
	// operation above is a no-op and queries return empty lists (§4.2
	// disablement mode).
	Enabled() bool
}
