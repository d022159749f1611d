// Package memory holds the vector record types of §3: Chunk and
// Summary, the two collections C2 persists.
package memory

import "fmt"

// Chunk is a vector-tagged slice of a chapter's text (§3).
type Chunk struct {
	ID            string
	ProjectID     string
	ChapterNumber int
	ChunkIndex    int
	ChapterTitle  string
	Content       string
	Embedding     []float32
	Metadata      map[string]any
	// Score is populated by query operations (C2) as the cosine
	// distance between the query embedding and this record (§4.2).
	Score float64
}

// ChunkID formats the canonical chunk id of §3: `{project}:{chapter}:{chunk_index}`.
func ChunkID(projectID string, chapterNumber, chunkIndex int) string {
	return fmt.Sprintf("%s:%d:%d", projectID, chapterNumber, chunkIndex)
}

// NewChunk creates a Chunk with its canonical id.
func NewChunk(projectID string, chapterNumber, chunkIndex int, chapterTitle, content string, embedding []float32, metadata map[string]any) *Chunk {
	return &Chunk{
		ID:            ChunkID(projectID, chapterNumber, chunkIndex),
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		ChunkIndex:    chunkIndex,
		ChapterTitle:  chapterTitle,
		Content:       content,
		Embedding:     embedding,
		Metadata:      metadata,
	}
}
