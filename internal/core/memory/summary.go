package memory

import "fmt"

// Summary is a vector-tagged chapter summary (§3).
type Summary struct {
	ID            string
	ProjectID     string
	ChapterNumber int
	Title         string
	Summary       string
	Embedding     []float32
	// Score is populated by query operations (C2) as the cosine
	// distance between the query embedding and this record (§4.2).
	Score float64
}

// SummaryID formats the canonical summary id of §3: `{project}:{chapter}:summary`.
func SummaryID(projectID string, chapterNumber int) string {
	return fmt.Sprintf("%s:%d:summary", projectID, chapterNumber)
}

// NewSummary creates a Summary with its canonical id.
func NewSummary(projectID string, chapterNumber int, title, summary string, embedding []float32) *Summary {
	return &Summary{
		ID:            SummaryID(projectID, chapterNumber),
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Title:         title,
		Summary:       summary,
		Embedding:     embedding,
	}
}
