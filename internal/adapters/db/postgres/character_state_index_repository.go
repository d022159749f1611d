package postgres

import (
	"context"
	"encoding/json"

	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.CharacterStateIndexRepository = (*CharacterStateIndexRepository)(nil)

// CharacterStateIndexRepository implements repositories.CharacterStateIndexRepository
// (C6, §4.6), one row per (project, chapter, character) per P3.
type CharacterStateIndexRepository struct {
	db *DB
}

// NewCharacterStateIndexRepository creates a new character state index repository.
func NewCharacterStateIndexRepository(db *DB) *CharacterStateIndexRepository {
	return &CharacterStateIndexRepository{db: db}
}

func (r *CharacterStateIndexRepository) DeleteByChapter(ctx context.Context, projectID string, chapterNumber int) error {
	query := `DELETE FROM character_state_index WHERE project_id = $1 AND chapter_number = $2`
	_, err := r.db.Exec(ctx, query, projectID, chapterNumber)
	return err
}

func (r *CharacterStateIndexRepository) InsertMany(ctx context.Context, rows []*index.CharacterStateRow) error {
	query := `
		INSERT INTO character_state_index (project_id, chapter_number, character_name, location, status, changes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, row := range rows {
		changes, err := json.Marshal(row.Changes)
		if err != nil {
			return err
		}
		if _, err := r.db.Exec(ctx, query, row.ProjectID, row.ChapterNumber, row.CharacterName, row.Location, row.Status, changes); err != nil {
			return err
		}
	}
	return nil
}

func (r *CharacterStateIndexRepository) History(ctx context.Context, projectID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error) {
	query := `
		SELECT project_id, chapter_number, character_name, location, status, changes
		FROM character_state_index
		WHERE project_id = $1 AND character_name = $2 AND chapter_number < $3
		ORDER BY chapter_number DESC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, projectID, characterName, beforeChapter, nullableLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*index.CharacterStateRow
	for rows.Next() {
		row, err := scanCharacterStateRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *CharacterStateIndexRepository) ChapterStates(ctx context.Context, projectID string, chapterNumber int) (map[string]*index.CharacterStateRow, error) {
	query := `
		SELECT project_id, chapter_number, character_name, location, status, changes
		FROM character_state_index
		WHERE project_id = $1 AND chapter_number = $2
	`
	rows, err := r.db.Query(ctx, query, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]*index.CharacterStateRow{}
	for rows.Next() {
		row, err := scanCharacterStateRow(rows)
		if err != nil {
			return nil, err
		}
		result[row.CharacterName] = row
	}
	return result, rows.Err()
}

func scanCharacterStateRow(row rowScanner) (*index.CharacterStateRow, error) {
	var r index.CharacterStateRow
	var changes []byte
	if err := row.Scan(&r.ProjectID, &r.ChapterNumber, &r.CharacterName, &r.Location, &r.Status, &changes); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &r.Changes); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// nullableLimit maps a 0 ("unlimited") limit to Postgres' ALL via a large
// sentinel, since LIMIT does not accept a literal "no limit" bind param.
func nullableLimit(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}
