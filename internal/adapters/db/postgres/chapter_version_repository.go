package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ChapterVersionRepository = (*ChapterVersionRepository)(nil)

// ChapterVersionRepository implements repositories.ChapterVersionRepository.
type ChapterVersionRepository struct {
	db *DB
}

// NewChapterVersionRepository creates a new chapter version repository.
func NewChapterVersionRepository(db *DB) *ChapterVersionRepository {
	return &ChapterVersionRepository{db: db}
}

func (r *ChapterVersionRepository) Create(ctx context.Context, v *chapter.Version) error {
	metadata, err := json.Marshal(v.ProviderMetadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO chapter_versions (id, chapter_id, version_label, content, provider_metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Exec(ctx, query, v.ID, v.ChapterID, v.VersionLabel, v.Content, metadata, v.CreatedAt)
	return err
}

func (r *ChapterVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*chapter.Version, error) {
	query := `
		SELECT id, chapter_id, version_label, content, provider_metadata, created_at
		FROM chapter_versions
		WHERE id = $1
	`
	v, err := scanChapterVersion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "chapter_version", ID: id.String()}
		}
		return nil, err
	}
	return v, nil
}

func (r *ChapterVersionRepository) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*chapter.Version, error) {
	query := `
		SELECT id, chapter_id, version_label, content, provider_metadata, created_at
		FROM chapter_versions
		WHERE chapter_id = $1
		ORDER BY version_label ASC
	`
	rows, err := r.db.Query(ctx, query, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*chapter.Version
	for rows.Next() {
		v, err := scanChapterVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *ChapterVersionRepository) Update(ctx context.Context, v *chapter.Version) error {
	metadata, err := json.Marshal(v.ProviderMetadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE chapter_versions
		SET content = $2, provider_metadata = $3
		WHERE id = $1
	`
	_, err = r.db.Exec(ctx, query, v.ID, v.Content, metadata)
	return err
}

func (r *ChapterVersionRepository) DeleteByChapter(ctx context.Context, chapterID uuid.UUID) error {
	query := `DELETE FROM chapter_versions WHERE chapter_id = $1`
	_, err := r.db.Exec(ctx, query, chapterID)
	return err
}

func scanChapterVersion(row rowScanner) (*chapter.Version, error) {
	var v chapter.Version
	var metadata []byte
	if err := row.Scan(&v.ID, &v.ChapterID, &v.VersionLabel, &v.Content, &metadata, &v.CreatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &v.ProviderMetadata); err != nil {
			return nil, err
		}
	}
	return &v, nil
}
