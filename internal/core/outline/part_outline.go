// Package outline holds PartOutline and ChapterOutline (§3).
package outline

import (
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

// GenerationStatus is PartOutline's generation_status (§3, §4.13).
type GenerationStatus string

const (
	GenStatusPending    GenerationStatus = "pending"
	GenStatusGenerating GenerationStatus = "generating"
	GenStatusCancelling GenerationStatus = "cancelling"
	GenStatusCompleted  GenerationStatus = "completed"
	GenStatusCancelled  GenerationStatus = "cancelled"
	GenStatusFailed     GenerationStatus = "failed"
)

func isValidGenerationStatus(s GenerationStatus) bool {
	switch s {
	case GenStatusPending, GenStatusGenerating, GenStatusCancelling,
		GenStatusCompleted, GenStatusCancelled, GenStatusFailed:
		return true
	}
	return false
}

// PartOutline is the mid-level plan covering a contiguous chapter range
// (§3).
type PartOutline struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	PartNumber        int
	Title             string
	Summary           string
	StartChapter      int
	EndChapter        int
	Theme             string
	KeyEvents         []string
	Conflicts         []string
	CharacterArcs     map[string]string
	EndingHook        string
	GenerationStatus  GenerationStatus
	Progress          int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New creates a PartOutline in GenStatusPending.
func New(projectID uuid.UUID, partNumber, startChapter, endChapter int) (*PartOutline, error) {
	if partNumber < 1 {
		return nil, &apperrors.ValidationError{Field: "part_number", Message: "must be >= 1"}
	}
	if startChapter < 1 || endChapter < startChapter {
		return nil, &apperrors.ValidationError{Field: "start_chapter/end_chapter", Message: "invalid chapter range"}
	}
	now := time.Now()
	return &PartOutline{
		ID:               uuid.New(),
		ProjectID:        projectID,
		PartNumber:       partNumber,
		StartChapter:     startChapter,
		EndChapter:       endChapter,
		CharacterArcs:    map[string]string{},
		GenerationStatus: GenStatusPending,
		Progress:         0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Validate checks structural invariants.
func (p *PartOutline) Validate() error {
	if p.PartNumber < 1 {
		return &apperrors.ValidationError{Field: "part_number", Message: "must be >= 1"}
	}
	if p.StartChapter < 1 || p.EndChapter < p.StartChapter {
		return &apperrors.ValidationError{Field: "start_chapter/end_chapter", Message: "invalid chapter range"}
	}
	if p.Progress < 0 || p.Progress > 100 {
		return &apperrors.ValidationError{Field: "progress", Message: "must be within 0-100"}
	}
	if !isValidGenerationStatus(p.GenerationStatus) {
		return &apperrors.ValidationError{Field: "generation_status", Message: "unknown generation status"}
	}
	return nil
}

// StartGenerating transitions pending -> generating.
func (p *PartOutline) StartGenerating() error {
	if p.GenerationStatus != GenStatusPending {
		return &apperrors.InvalidStateTransitionError{From: string(p.GenerationStatus), To: string(GenStatusGenerating), Event: "start_generating"}
	}
	p.GenerationStatus = GenStatusGenerating
	p.UpdatedAt = time.Now()
	return nil
}

// StartGeneratingChapters transitions completed -> generating, re-entering
// the generating state so a later generate_part_chapters run over an
// already-outlined part is cancellable the same way part outline
// generation is (§4.13, §5).
func (p *PartOutline) StartGeneratingChapters() error {
	if p.GenerationStatus != GenStatusCompleted {
		return &apperrors.InvalidStateTransitionError{From: string(p.GenerationStatus), To: string(GenStatusGenerating), Event: "start_generating_chapters"}
	}
	p.GenerationStatus = GenStatusGenerating
	p.UpdatedAt = time.Now()
	return nil
}

// RequestCancel sets the externally-observable cancelling target state
// (§4.13, §5). It is legal only while generating.
func (p *PartOutline) RequestCancel() error {
	if p.GenerationStatus != GenStatusGenerating {
		return &apperrors.InvalidStateTransitionError{From: string(p.GenerationStatus), To: string(GenStatusCancelling), Event: "request_cancel"}
	}
	p.GenerationStatus = GenStatusCancelling
	p.UpdatedAt = time.Now()
	return nil
}

// IsCancelling reports whether a cancellation has been requested; the
// pipeline checks this at the three checkpoints named in §5.
func (p *PartOutline) IsCancelling() bool {
	return p.GenerationStatus == GenStatusCancelling
}

// Complete marks generation as finished.
func (p *PartOutline) Complete() {
	p.GenerationStatus = GenStatusCompleted
	p.Progress = 100
	p.UpdatedAt = time.Now()
}

// Cancel converts a cancelling part to cancelled (the `finally` path of §5).
func (p *PartOutline) Cancel() {
	p.GenerationStatus = GenStatusCancelled
	p.UpdatedAt = time.Now()
}

// Fail marks generation as failed.
func (p *PartOutline) Fail() {
	p.GenerationStatus = GenStatusFailed
	p.UpdatedAt = time.Now()
}

// IsStaleGenerating reports whether this row has been stuck in
// generating past the staleness threshold (§4.13 "Stale-state cleanup").
func (p *PartOutline) IsStaleGenerating(threshold time.Duration, now time.Time) bool {
	return p.GenerationStatus == GenStatusGenerating && now.Sub(p.UpdatedAt) > threshold
}
