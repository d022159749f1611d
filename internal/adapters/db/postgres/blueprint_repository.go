package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.BlueprintRepository = (*BlueprintRepository)(nil)

// BlueprintRepository implements repositories.BlueprintRepository,
// owning the blueprints, blueprint_characters, and
// blueprint_relationships tables (§3 ownership: characters/relationships
// belong to Blueprint and are replaced wholesale on patch).
type BlueprintRepository struct {
	db *DB
}

// NewBlueprintRepository creates a new blueprint repository.
func NewBlueprintRepository(db *DB) *BlueprintRepository {
	return &BlueprintRepository{db: db}
}

// Create inserts a new blueprint row (without characters/relationships;
// callers attach those via ReplaceCharacters/ReplaceRelationships).
func (r *BlueprintRepository) Create(ctx context.Context, b *blueprint.Blueprint) error {
	worldSetting, err := json.Marshal(b.WorldSetting)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO blueprints (
			id, project_id, title, genre, style, tone, target_audience,
			one_sentence_summary, full_synopsis, world_setting,
			needs_part_outlines, total_chapters, chapters_per_part,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Exec(ctx, query,
		b.ID, b.ProjectID, b.Title, b.Genre, b.Style, b.Tone, b.TargetAudience,
		b.OneSentenceSummary, b.FullSynopsis, worldSetting,
		b.NeedsPartOutlines, b.TotalChapters, b.ChaptersPerPart,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	if err := r.ReplaceCharacters(ctx, b.ID, b.Characters); err != nil {
		return err
	}
	return r.ReplaceRelationships(ctx, b.ID, b.Relationships)
}

// GetByProjectID loads the blueprint and its owned characters/relationships.
func (r *BlueprintRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*blueprint.Blueprint, error) {
	query := `
		SELECT id, project_id, title, genre, style, tone, target_audience,
			one_sentence_summary, full_synopsis, world_setting,
			needs_part_outlines, total_chapters, chapters_per_part,
			created_at, updated_at
		FROM blueprints
		WHERE project_id = $1
	`
	var b blueprint.Blueprint
	var worldSetting []byte
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&b.ID, &b.ProjectID, &b.Title, &b.Genre, &b.Style, &b.Tone, &b.TargetAudience,
		&b.OneSentenceSummary, &b.FullSynopsis, &worldSetting,
		&b.NeedsPartOutlines, &b.TotalChapters, &b.ChaptersPerPart,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "blueprint", ID: projectID.String()}
		}
		return nil, err
	}
	if len(worldSetting) > 0 {
		if err := json.Unmarshal(worldSetting, &b.WorldSetting); err != nil {
			return nil, err
		}
	} else {
		b.WorldSetting = map[string]any{}
	}

	characters, err := r.listCharacters(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Characters = characters

	relationships, err := r.listRelationships(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Relationships = relationships

	return &b, nil
}

// Update persists mutated scalar blueprint fields (not
// characters/relationships; use the Replace* methods for those).
func (r *BlueprintRepository) Update(ctx context.Context, b *blueprint.Blueprint) error {
	worldSetting, err := json.Marshal(b.WorldSetting)
	if err != nil {
		return err
	}
	query := `
		UPDATE blueprints
		SET title = $2, genre = $3, style = $4, tone = $5, target_audience = $6,
			one_sentence_summary = $7, full_synopsis = $8, world_setting = $9,
			needs_part_outlines = $10, total_chapters = $11, chapters_per_part = $12,
			updated_at = $13
		WHERE id = $1
	`
	_, err = r.db.Exec(ctx, query,
		b.ID, b.Title, b.Genre, b.Style, b.Tone, b.TargetAudience,
		b.OneSentenceSummary, b.FullSynopsis, worldSetting,
		b.NeedsPartOutlines, b.TotalChapters, b.ChaptersPerPart, b.UpdatedAt)
	return err
}

// Replace overwrites an existing blueprint wholesale (§4.13
// "Regenerating Blueprint"): same row, new scalar fields, and a full
// character/relationship replace.
func (r *BlueprintRepository) Replace(ctx context.Context, b *blueprint.Blueprint) error {
	if err := r.Update(ctx, b); err != nil {
		return err
	}
	if err := r.ReplaceCharacters(ctx, b.ID, b.Characters); err != nil {
		return err
	}
	return r.ReplaceRelationships(ctx, b.ID, b.Relationships)
}

// DeleteByProjectID removes the blueprint and its owned rows (cascades
// via FK ON DELETE CASCADE on blueprint_characters/blueprint_relationships).
func (r *BlueprintRepository) DeleteByProjectID(ctx context.Context, projectID uuid.UUID) error {
	query := `DELETE FROM blueprints WHERE project_id = $1`
	_, err := r.db.Exec(ctx, query, projectID)
	return err
}

// ReplaceCharacters deletes and reinserts blueprintID's character list.
func (r *BlueprintRepository) ReplaceCharacters(ctx context.Context, blueprintID uuid.UUID, chars []*blueprint.Character) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM blueprint_characters WHERE blueprint_id = $1`, blueprintID); err != nil {
		return err
	}
	query := `
		INSERT INTO blueprint_characters (
			id, blueprint_id, name, identity, personality, goals, abilities,
			relationship_to_protagonist, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, c := range chars {
		if _, err := r.db.Exec(ctx, query,
			c.ID, blueprintID, c.Name, c.Identity, c.Personality, c.Goals, c.Abilities,
			c.RelationshipToProtagonist, c.Position); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRelationships deletes and reinserts blueprintID's relationship list.
func (r *BlueprintRepository) ReplaceRelationships(ctx context.Context, blueprintID uuid.UUID, rels []*blueprint.Relationship) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM blueprint_relationships WHERE blueprint_id = $1`, blueprintID); err != nil {
		return err
	}
	query := `
		INSERT INTO blueprint_relationships (
			id, blueprint_id, character_from, character_to, description, position
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, rel := range rels {
		if _, err := r.db.Exec(ctx, query,
			rel.ID, blueprintID, rel.CharacterFrom, rel.CharacterTo, rel.Description, rel.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r *BlueprintRepository) listCharacters(ctx context.Context, blueprintID uuid.UUID) ([]*blueprint.Character, error) {
	query := `
		SELECT id, blueprint_id, name, identity, personality, goals, abilities,
			relationship_to_protagonist, position
		FROM blueprint_characters
		WHERE blueprint_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Query(ctx, query, blueprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var characters []*blueprint.Character
	for rows.Next() {
		var c blueprint.Character
		if err := rows.Scan(&c.ID, &c.BlueprintID, &c.Name, &c.Identity, &c.Personality, &c.Goals,
			&c.Abilities, &c.RelationshipToProtagonist, &c.Position); err != nil {
			return nil, err
		}
		characters = append(characters, &c)
	}
	return characters, rows.Err()
}

func (r *BlueprintRepository) listRelationships(ctx context.Context, blueprintID uuid.UUID) ([]*blueprint.Relationship, error) {
	query := `
		SELECT id, blueprint_id, character_from, character_to, description, position
		FROM blueprint_relationships
		WHERE blueprint_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Query(ctx, query, blueprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relationships []*blueprint.Relationship
	for rows.Next() {
		var rel blueprint.Relationship
		if err := rows.Scan(&rel.ID, &rel.BlueprintID, &rel.CharacterFrom, &rel.CharacterTo,
			&rel.Description, &rel.Position); err != nil {
			return nil, err
		}
		relationships = append(relationships, &rel)
	}
	return relationships, rows.Err()
}
