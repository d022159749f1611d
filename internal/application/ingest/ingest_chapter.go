package ingest

import (
	"context"
	"fmt"

	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

// ChapterIngestor implements C4: chunk a confirmed chapter, embed chunks
// and summary, upsert to the vector store, delete prior vectors for the
// same chapter (§4.4), generalized from
// ingest_chapter.go's delete-then-write idempotent shape.
type ChapterIngestor struct {
	store   vectorstore.Store
	gateway llm.Gateway
	opts    SplitOptions
}

// NewChapterIngestor constructs a ChapterIngestor.
func NewChapterIngestor(store vectorstore.Store, gateway llm.Gateway, opts SplitOptions) *ChapterIngestor {
	return &ChapterIngestor{store: store, gateway: gateway, opts: opts}
}

// IngestChapter runs the five steps of §4.4. If embedding any chunk
// fails, the whole operation fails; prior deletes/writes already
// performed remain (idempotent — the next successful ingestion
// overwrites them, per §4.4 "Failure mode").
func (ci *ChapterIngestor) IngestChapter(ctx context.Context, projectID string, chapterNumber int, title, content, summary, userID string) error {
	if !ci.store.Enabled() {
		return nil
	}

	if err := ci.store.DeleteByChapters(ctx, projectID, []int{chapterNumber}); err != nil {
		return fmt.Errorf("delete prior vectors for chapter %d: %w", chapterNumber, err)
	}

	chunks := Split(content, ci.opts)
	if len(chunks) == 0 {
		return nil
	}

	records := make([]*memory.Chunk, 0, len(chunks))
	for i, text := range chunks {
		embedding, err := ci.gateway.Embed(ctx, text, llm.EmbedOptions{UserID: userID})
		if err != nil {
			return fmt.Errorf("embed chunk %d of chapter %d: %w", i, chapterNumber, err)
		}
		records = append(records, memory.NewChunk(projectID, chapterNumber, i, title, text, embedding, nil))
	}

	if err := ci.store.UpsertChunks(ctx, records); err != nil {
		return fmt.Errorf("upsert chunks for chapter %d: %w", chapterNumber, err)
	}

	if summary != "" {
		embedding, err := ci.gateway.Embed(ctx, summary, llm.EmbedOptions{UserID: userID})
		if err != nil {
			return fmt.Errorf("embed summary of chapter %d: %w", chapterNumber, err)
		}
		record := memory.NewSummary(projectID, chapterNumber, title, summary, embedding)
		if err := ci.store.UpsertSummaries(ctx, []*memory.Summary{record}); err != nil {
			return fmt.Errorf("upsert summary for chapter %d: %w", chapterNumber, err)
		}
	}

	return nil
}
