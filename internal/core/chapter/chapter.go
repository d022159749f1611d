// Package chapter holds the Chapter aggregate: Chapter, ChapterVersion,
// ChapterEvaluation, and the analysis_data structure produced by C5
// (§3, §4.5, §4.12).
package chapter

import (
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

// Chapter is the per-chapter entity of §3.
type Chapter struct {
	ID                 uuid.UUID
	ProjectID          uuid.UUID
	ChapterNumber      int
	Status             Status
	SelectedVersionID  *uuid.UUID
	WordCount          int
	RealSummary        *string
	AnalysisData       *AnalysisData
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New creates a Chapter in StatusNotGenerated.
func New(projectID uuid.UUID, chapterNumber int) (*Chapter, error) {
	if chapterNumber < 1 {
		return nil, &apperrors.ValidationError{Field: "chapter_number", Message: "must be >= 1"}
	}
	now := time.Now()
	return &Chapter{
		ID:            uuid.New(),
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Status:        StatusNotGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Validate checks structural invariants (§3: selected_version_id, if
// set, must belong to this chapter — enforced by callers holding both
// entities; here we check the locally-verifiable invariants).
func (c *Chapter) Validate() error {
	if c.ChapterNumber < 1 {
		return &apperrors.ValidationError{Field: "chapter_number", Message: "must be >= 1"}
	}
	if !isValidStatus(c.Status) {
		return &apperrors.ValidationError{Field: "status", Message: "unknown chapter status"}
	}
	if c.WordCount < 0 {
		return &apperrors.ValidationError{Field: "word_count", Message: "must be >= 0"}
	}
	return nil
}

// SelectVersion marks v as the selected version, sets status to
// successful, and derives word_count from v's content (P4). Callers are
// responsible for v.ChapterID == c.ID before calling.
func (c *Chapter) SelectVersion(v *Version) {
	c.SelectedVersionID = &v.ID
	c.Status = StatusSuccessful
	c.WordCount = len([]rune(v.Content))
	c.UpdatedAt = time.Now()
}

// MarkWaitingForConfirm transitions the chapter after N candidate
// versions have been produced, at least one of which succeeded (§4.12
// step 8).
func (c *Chapter) MarkWaitingForConfirm() {
	c.Status = StatusWaitingForConfirm
	c.UpdatedAt = time.Now()
}

// MarkFailed transitions the chapter when every candidate version failed.
func (c *Chapter) MarkFailed() {
	c.Status = StatusFailed
	c.UpdatedAt = time.Now()
}

// SetAnalysis stores the result of C5 analysis and the compressed summary.
func (c *Chapter) SetAnalysis(data *AnalysisData) {
	c.AnalysisData = data
	if data != nil && data.Summaries.Compressed != "" {
		summary := data.Summaries.Compressed
		c.RealSummary = &summary
	}
	c.UpdatedAt = time.Now()
}
