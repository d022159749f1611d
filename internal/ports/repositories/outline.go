package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/outline"
)

// PartOutlineRepository persists PartOutline rows.
type PartOutlineRepository interface {
	Create(ctx context.Context, p *outline.PartOutline) error
	GetByNumber(ctx context.Context, projectID uuid.UUID, partNumber int) (*outline.PartOutline, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.PartOutline, error)
	Update(ctx context.Context, p *outline.PartOutline) error
	// DeleteFromNumber removes every PartOutline with part_number >= fromNumber
	// (cascade rules of §4.13).
	DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

// ChapterOutlineRepository persists ChapterOutline rows.
type ChapterOutlineRepository interface {
	Create(ctx context.Context, c *outline.ChapterOutline) error
	GetByNumber(ctx context.Context, projectID uuid.UUID, chapterNumber int) (*outline.ChapterOutline, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*outline.ChapterOutline, error)
	Update(ctx context.Context, c *outline.ChapterOutline) error
	// DeleteFromNumber removes every ChapterOutline with chapter_number >=
	// fromNumber (cascade rules of §4.13).
	DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error
	// DeleteLastN removes the N outlines with the highest chapter_number
	// (delete_chapter_outlines of §6).
	DeleteLastN(ctx context.Context, projectID uuid.UUID, n int) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}
