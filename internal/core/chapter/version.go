package chapter

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FailedContentPrefix marks a version whose generation failed (§4.12
// step 7): "the content begins with 生成失败:".
const FailedContentPrefix = "生成失败:"

// Version is a single candidate chapter text produced in one fan-out
// round (§3 ChapterVersion, §4.12).
type Version struct {
	ID               uuid.UUID
	ChapterID        uuid.UUID
	VersionLabel     string
	Content          string
	ProviderMetadata map[string]any
	CreatedAt        time.Time
}

// NewVersion creates a successful candidate version.
func NewVersion(chapterID uuid.UUID, label, content string, metadata map[string]any) *Version {
	return &Version{
		ID:               uuid.New(),
		ChapterID:        chapterID,
		VersionLabel:     label,
		Content:          content,
		ProviderMetadata: metadata,
		CreatedAt:        time.Now(),
	}
}

// NewFailedVersion creates a version record representing a per-version
// generation failure (§4.12 step 7): content begins with FailedContentPrefix
// and metadata captures the error.
func NewFailedVersion(chapterID uuid.UUID, label string, cause error) *Version {
	return &Version{
		ID:           uuid.New(),
		ChapterID:    chapterID,
		VersionLabel: label,
		Content:      FailedContentPrefix + " " + cause.Error(),
		ProviderMetadata: map[string]any{
			"error": cause.Error(),
		},
		CreatedAt: time.Now(),
	}
}

// IsFailed reports whether this version represents a failed generation
// attempt (§4.12 step 7, §7 propagation policy).
func (v *Version) IsFailed() bool {
	return strings.HasPrefix(v.Content, FailedContentPrefix)
}

// EvaluationDecision is the outcome recorded for a chapter version.
type EvaluationDecision string

const (
	DecisionAccept EvaluationDecision = "accept"
	DecisionRetry  EvaluationDecision = "retry"
	DecisionReject EvaluationDecision = "reject"
)

// Evaluation is the ChapterEvaluation entity of §3.
type Evaluation struct {
	ID        uuid.UUID
	ChapterID uuid.UUID
	VersionID *uuid.UUID
	Decision  EvaluationDecision
	Feedback  string
	CreatedAt time.Time
}

// NewEvaluation creates a ChapterEvaluation.
func NewEvaluation(chapterID uuid.UUID, versionID *uuid.UUID, decision EvaluationDecision, feedback string) *Evaluation {
	return &Evaluation{
		ID:        uuid.New(),
		ChapterID: chapterID,
		VersionID: versionID,
		Decision:  decision,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	}
}
