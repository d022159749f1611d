// Package postgres implements the C2 vector store port over pgvector,
// generalized from ingestion-service's chunk_repository.go
// (formatVector/parseVector, the `<=>` cosine-distance operator) into
// two collections instead of one.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Store implements vectorstore.Store over two pgvector-backed tables,
// memory_chunks and memory_summaries.
type Store struct {
	db *DB
}

// NewStore creates a new postgres-backed vector store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Enabled always reports true for the postgres-backed store; the
// disablement mode of §4.2 is served by adapters/vectorstore/memory
// with Enabled() == false instead.
func (s *Store) Enabled() bool { return true }

func (s *Store) UpsertChunks(ctx context.Context, records []*memory.Chunk) error {
	query := `
		INSERT INTO memory_chunks (id, project_id, chapter_number, chunk_index, chapter_title, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			chapter_title = EXCLUDED.chapter_title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`
	for _, c := range records {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(ctx, query, c.ID, c.ProjectID, c.ChapterNumber, c.ChunkIndex, c.ChapterTitle,
			c.Content, formatVector(c.Embedding), metadata); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertSummaries(ctx context.Context, records []*memory.Summary) error {
	query := `
		INSERT INTO memory_summaries (id, project_id, chapter_number, title, summary, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			embedding = EXCLUDED.embedding
	`
	for _, sm := range records {
		if _, err := s.db.Exec(ctx, query, sm.ID, sm.ProjectID, sm.ChapterNumber, sm.Title, sm.Summary, formatVector(sm.Embedding)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) QueryChunks(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Chunk, error) {
	query := `
		SELECT id, project_id, chapter_number, chunk_index, chapter_title, content, embedding, metadata,
			embedding <=> $2::vector AS score
		FROM memory_chunks
		WHERE project_id = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, projectID, formatVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*memory.Chunk
	for rows.Next() {
		var c memory.Chunk
		var embeddingStr string
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.ChapterNumber, &c.ChunkIndex, &c.ChapterTitle,
			&c.Content, &embeddingStr, &metadata, &c.Score); err != nil {
			return nil, err
		}
		c.Embedding = parseVector(embeddingStr)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, err
			}
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (s *Store) QuerySummaries(ctx context.Context, projectID string, embedding []float32, topK int) ([]*memory.Summary, error) {
	query := `
		SELECT id, project_id, chapter_number, title, summary, embedding,
			embedding <=> $2::vector AS score
		FROM memory_summaries
		WHERE project_id = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, projectID, formatVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*memory.Summary
	for rows.Next() {
		var sm memory.Summary
		var embeddingStr string
		if err := rows.Scan(&sm.ID, &sm.ProjectID, &sm.ChapterNumber, &sm.Title, &sm.Summary, &embeddingStr, &sm.Score); err != nil {
			return nil, err
		}
		sm.Embedding = parseVector(embeddingStr)
		summaries = append(summaries, &sm)
	}
	return summaries, rows.Err()
}

func (s *Store) DeleteByChapters(ctx context.Context, projectID string, chapterNumbers []int) error {
	if len(chapterNumbers) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM memory_chunks WHERE project_id = $1 AND chapter_number = ANY($2)`, projectID, chapterNumbers); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM memory_summaries WHERE project_id = $1 AND chapter_number = ANY($2)`, projectID, chapterNumbers)
	return err
}

// formatVector formats a float32 slice as a pgvector literal:
// "[0.1,0.2,0.3]" with no spaces after commas.
func formatVector(vec []float32) string {
	if len(vec) == 0 {
		return "[]"
	}
	strs := make([]string, len(vec))
	for i, v := range vec {
		strs[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(strs, ",") + "]"
}

// parseVector parses a pgvector literal back into a float32 slice.
func parseVector(s string) []float32 {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, part := range parts {
		var v float32
		fmt.Sscanf(strings.TrimSpace(part), "%f", &v)
		vec[i] = v
	}
	return vec
}
