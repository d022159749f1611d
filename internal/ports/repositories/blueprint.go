package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/blueprint"
)

// BlueprintRepository persists the single Blueprint per project, along
// with its owned Characters and Relationships.
type BlueprintRepository interface {
	Create(ctx context.Context, b *blueprint.Blueprint) error
	GetByProjectID(ctx context.Context, projectID uuid.UUID) (*blueprint.Blueprint, error)
	Update(ctx context.Context, b *blueprint.Blueprint) error
	// Replace overwrites an existing blueprint wholesale (regeneration,
	// §4.13 "Regenerating Blueprint").
	Replace(ctx context.Context, b *blueprint.Blueprint) error
	DeleteByProjectID(ctx context.Context, projectID uuid.UUID) error

	// ReplaceCharacters overwrites the blueprint's character list
	// (ownership: replace-on-patch per §3).
	ReplaceCharacters(ctx context.Context, blueprintID uuid.UUID, chars []*blueprint.Character) error
	// ReplaceRelationships overwrites the blueprint's relationship list.
	ReplaceRelationships(ctx context.Context, blueprintID uuid.UUID, rels []*blueprint.Relationship) error
}
