package outline

import (
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

// ChapterOutline is the per-chapter title+summary plan of §3.
type ChapterOutline struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	ChapterNumber int
	Title         string
	Summary       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewChapterOutline creates a ChapterOutline.
func NewChapterOutline(projectID uuid.UUID, chapterNumber int, title, summary string) (*ChapterOutline, error) {
	if chapterNumber < 1 {
		return nil, &apperrors.ValidationError{Field: "chapter_number", Message: "must be >= 1"}
	}
	if title == "" {
		return nil, &apperrors.ValidationError{Field: "title", Message: "chapter outline title is required"}
	}
	now := time.Now()
	return &ChapterOutline{
		ID:            uuid.New(),
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Title:         title,
		Summary:       summary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Validate checks structural invariants.
func (c *ChapterOutline) Validate() error {
	if c.ChapterNumber < 1 {
		return &apperrors.ValidationError{Field: "chapter_number", Message: "must be >= 1"}
	}
	if c.Title == "" {
		return &apperrors.ValidationError{Field: "title", Message: "chapter outline title is required"}
	}
	return nil
}

// FirstSentence returns the text up to the first Chinese or ASCII full
// stop, used by the layered historical summary of §4.10 for chapters
// older than the recent window.
func FirstSentence(text string) string {
	for i, r := range text {
		if r == '。' || r == '.' {
			return text[:i+len(string(r))]
		}
	}
	return text
}

// ValidateChapterNumberOrdering checks that chapter outlines form a total
// ordering with no gaps (§3 invariant, P6): the chapter_numbers present
// must equal {1, ..., max}.
func ValidateChapterNumberOrdering(outlines []*ChapterOutline) error {
	seen := map[int]bool{}
	max := 0
	for _, o := range outlines {
		if seen[o.ChapterNumber] {
			return &apperrors.ValidationError{Field: "chapter_number", Message: "duplicate chapter_number"}
		}
		seen[o.ChapterNumber] = true
		if o.ChapterNumber > max {
			max = o.ChapterNumber
		}
	}
	for n := 1; n <= max; n++ {
		if !seen[n] {
			return &apperrors.ValidationError{Field: "chapter_number", Message: "gap in chapter_number sequence"}
		}
	}
	return nil
}

// ValidatePartOutlineTiling checks that part ranges tile [1, totalChapters]
// without overlap or gap (§3 invariant, P5).
func ValidatePartOutlineTiling(parts []*PartOutline, totalChapters int) error {
	byStart := make(map[int]*PartOutline, len(parts))
	for _, p := range parts {
		byStart[p.StartChapter] = p
	}
	expected := 1
	visited := 0
	for visited < len(parts) {
		p, ok := byStart[expected]
		if !ok {
			return &apperrors.ValidationError{Field: "part_outlines", Message: "gap or overlap in part chapter ranges"}
		}
		expected = p.EndChapter + 1
		visited++
	}
	if expected-1 != totalChapters {
		return &apperrors.ValidationError{Field: "part_outlines", Message: "part ranges do not tile 1..total_chapters"}
	}
	return nil
}
