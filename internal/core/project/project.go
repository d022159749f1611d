// Package project holds the Project aggregate root and the project-level
// state machine (C14, §4.14).
package project

import (
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

// Status is the project-level lifecycle state of §4.14.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusBlueprintReady      Status = "blueprint_ready"
	StatusPartOutlinesReady   Status = "part_outlines_ready"
	StatusChapterOutlinesReady Status = "chapter_outlines_ready"
	StatusWriting             Status = "writing"
	StatusCompleted           Status = "completed"
)

// Event names the transition a caller is attempting to make. Each event
// has one target status; some events are legal from more than one
// current status.
type Event string

const (
	EventBlueprintGenerated      Event = "blueprint_generated"
	EventPartOutlinesGenerated   Event = "part_outlines_generated"
	EventChapterOutlinesGenerated Event = "chapter_outlines_generated"
	EventFirstChapterStarted     Event = "first_chapter_started"
	EventAllChaptersCompleted    Event = "all_chapters_completed"
	EventRegenerateBlueprint     Event = "regenerate_blueprint"
)

// Project is the root entity of §3.
type Project struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Title         string
	InitialPrompt string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a Project in StatusDraft.
func New(tenantID uuid.UUID, title, initialPrompt string) (*Project, error) {
	if title == "" {
		return nil, &apperrors.ValidationError{Field: "title", Message: "project title is required"}
	}
	if initialPrompt == "" {
		return nil, &apperrors.ValidationError{Field: "initial_prompt", Message: "initial prompt is required"}
	}
	now := time.Now()
	return &Project{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Title:         title,
		InitialPrompt: initialPrompt,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// transitions enumerates the legal (from, event) -> to moves of §4.14. A
// project whose blueprint does not need part outlines skips directly from
// blueprint_ready to chapter_outlines_ready; that move is an ordinary
// entry of this map and does not check needs_part_outlines.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventBlueprintGenerated: StatusBlueprintReady,
	},
	StatusBlueprintReady: {
		EventPartOutlinesGenerated:    StatusPartOutlinesReady,
		EventChapterOutlinesGenerated: StatusChapterOutlinesReady,
		EventRegenerateBlueprint:      StatusBlueprintReady,
	},
	StatusPartOutlinesReady: {
		EventChapterOutlinesGenerated: StatusChapterOutlinesReady,
		EventRegenerateBlueprint:      StatusBlueprintReady,
	},
	StatusChapterOutlinesReady: {
		EventFirstChapterStarted: StatusWriting,
		EventRegenerateBlueprint: StatusBlueprintReady,
	},
	StatusWriting: {
		EventAllChaptersCompleted: StatusCompleted,
		EventRegenerateBlueprint:  StatusBlueprintReady,
	},
	StatusCompleted: {
		EventRegenerateBlueprint: StatusBlueprintReady,
	},
}

// NextStatus validates the (current, event) transition and returns the
// resulting status, or InvalidStateTransitionError. force=true bypasses
// validation entirely and returns the event's conventional target status
// (used for operator recovery per §4.14).
func NextStatus(current Status, event Event, force bool) (Status, error) {
	if force {
		if to, ok := forcedTarget(event); ok {
			return to, nil
		}
		return current, nil
	}
	byEvent, ok := transitions[current]
	if !ok {
		return "", &apperrors.InvalidStateTransitionError{From: string(current), To: "", Event: string(event)}
	}
	to, ok := byEvent[event]
	if !ok {
		return "", &apperrors.InvalidStateTransitionError{From: string(current), To: "", Event: string(event)}
	}
	return to, nil
}

func forcedTarget(event Event) (Status, bool) {
	for _, byEvent := range transitions {
		if to, ok := byEvent[event]; ok {
			return to, true
		}
	}
	return "", false
}

// Apply transitions the project in place, returning an error if the
// transition is illegal and force is false.
func (p *Project) Apply(event Event, force bool) error {
	to, err := NextStatus(p.Status, event, force)
	if err != nil {
		return err
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return nil
}

// Validate checks structural invariants.
func (p *Project) Validate() error {
	if p.Title == "" {
		return &apperrors.ValidationError{Field: "title", Message: "project title is required"}
	}
	switch p.Status {
	case StatusDraft, StatusBlueprintReady, StatusPartOutlinesReady,
		StatusChapterOutlinesReady, StatusWriting, StatusCompleted:
	default:
		return &apperrors.ValidationError{Field: "status", Message: "unknown project status"}
	}
	return nil
}
