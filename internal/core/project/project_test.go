package project

import (
	"testing"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

func TestNew_RequiresTitleAndPrompt(t *testing.T) {
	if _, err := New(uuid.New(), "", "a prompt"); err == nil {
		t.Error("expected error for empty title")
	}
	if _, err := New(uuid.New(), "a title", ""); err == nil {
		t.Error("expected error for empty initial prompt")
	}
	p, err := New(uuid.New(), "title", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusDraft {
		t.Errorf("expected new project in StatusDraft, got %s", p.Status)
	}
}

func TestApply_WalksTheHappyPath(t *testing.T) {
	p, _ := New(uuid.New(), "title", "prompt")

	steps := []struct {
		event Event
		want  Status
	}{
		{EventBlueprintGenerated, StatusBlueprintReady},
		{EventPartOutlinesGenerated, StatusPartOutlinesReady},
		{EventChapterOutlinesGenerated, StatusChapterOutlinesReady},
		{EventFirstChapterStarted, StatusWriting},
		{EventAllChaptersCompleted, StatusCompleted},
	}
	for _, s := range steps {
		if err := p.Apply(s.event, false); err != nil {
			t.Fatalf("event %s: unexpected error: %v", s.event, err)
		}
		if p.Status != s.want {
			t.Errorf("event %s: got status %s, want %s", s.event, p.Status, s.want)
		}
	}
}

func TestApply_SkippingPartOutlinesIsAllowed(t *testing.T) {
	p, _ := New(uuid.New(), "title", "prompt")
	if err := p.Apply(EventBlueprintGenerated, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Apply(EventChapterOutlinesGenerated, false); err != nil {
		t.Fatalf("unexpected error skipping part outlines: %v", err)
	}
	if p.Status != StatusChapterOutlinesReady {
		t.Errorf("expected StatusChapterOutlinesReady, got %s", p.Status)
	}
}

func TestApply_RejectsIllegalTransition(t *testing.T) {
	p, _ := New(uuid.New(), "title", "prompt")
	err := p.Apply(EventFirstChapterStarted, false)
	if err == nil {
		t.Fatal("expected error jumping straight from draft to writing")
	}
	if _, ok := err.(*apperrors.InvalidStateTransitionError); !ok {
		t.Errorf("expected *apperrors.InvalidStateTransitionError, got %T", err)
	}
	if p.Status != StatusDraft {
		t.Errorf("expected status unchanged after a rejected transition, got %s", p.Status)
	}
}

func TestApply_RegenerateBlueprintIsLegalFromEveryStatus(t *testing.T) {
	all := []Status{StatusDraft, StatusBlueprintReady, StatusPartOutlinesReady, StatusChapterOutlinesReady, StatusWriting, StatusCompleted}
	for _, from := range all {
		p := &Project{Status: from}
		if err := p.Apply(EventRegenerateBlueprint, false); err != nil {
			t.Errorf("regenerate_blueprint from %s: unexpected error: %v", from, err)
		}
		if p.Status != StatusBlueprintReady {
			t.Errorf("regenerate_blueprint from %s: got %s, want %s", from, p.Status, StatusBlueprintReady)
		}
	}
}

func TestApply_ForceBypassesValidation(t *testing.T) {
	p := &Project{Status: StatusDraft}
	if err := p.Apply(EventFirstChapterStarted, true); err != nil {
		t.Fatalf("unexpected error forcing an otherwise-illegal transition: %v", err)
	}
	if p.Status != StatusWriting {
		t.Errorf("expected forced transition to land on StatusWriting, got %s", p.Status)
	}
}

func TestValidate_RejectsEmptyTitleAndUnknownStatus(t *testing.T) {
	p := &Project{Title: "ok", Status: StatusDraft}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error for a valid project: %v", err)
	}

	p.Title = ""
	if err := p.Validate(); err == nil {
		t.Error("expected error for empty title")
	}

	p.Title = "ok"
	p.Status = Status("bogus")
	if err := p.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}
