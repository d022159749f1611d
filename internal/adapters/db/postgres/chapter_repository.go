package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.ChapterRepository = (*ChapterRepository)(nil)

// ChapterRepository implements repositories.ChapterRepository.
type ChapterRepository struct {
	db *DB
}

// NewChapterRepository creates a new chapter repository.
func NewChapterRepository(db *DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

func (r *ChapterRepository) Create(ctx context.Context, c *chapter.Chapter) error {
	analysisData, err := marshalAnalysis(c.AnalysisData)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO chapters (
			id, project_id, chapter_number, status, selected_version_id,
			word_count, real_summary, analysis_data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Exec(ctx, query,
		c.ID, c.ProjectID, c.ChapterNumber, string(c.Status), c.SelectedVersionID,
		c.WordCount, c.RealSummary, analysisData, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ChapterRepository) GetByNumber(ctx context.Context, projectID uuid.UUID, chapterNumber int) (*chapter.Chapter, error) {
	query := `
		SELECT id, project_id, chapter_number, status, selected_version_id,
			word_count, real_summary, analysis_data, created_at, updated_at
		FROM chapters
		WHERE project_id = $1 AND chapter_number = $2
	`
	c, err := scanChapter(r.db.QueryRow(ctx, query, projectID, chapterNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "chapter", ID: projectID.String() + "/" + strconv.Itoa(chapterNumber)}
		}
		return nil, err
	}
	return c, nil
}

func (r *ChapterRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*chapter.Chapter, error) {
	query := `
		SELECT id, project_id, chapter_number, status, selected_version_id,
			word_count, real_summary, analysis_data, created_at, updated_at
		FROM chapters
		WHERE project_id = $1
		ORDER BY chapter_number ASC
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*chapter.Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (r *ChapterRepository) Update(ctx context.Context, c *chapter.Chapter) error {
	analysisData, err := marshalAnalysis(c.AnalysisData)
	if err != nil {
		return err
	}
	query := `
		UPDATE chapters
		SET status = $2, selected_version_id = $3, word_count = $4,
			real_summary = $5, analysis_data = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = r.db.Exec(ctx, query,
		c.ID, string(c.Status), c.SelectedVersionID, c.WordCount, c.RealSummary, analysisData, c.UpdatedAt)
	return err
}

func (r *ChapterRepository) DeleteFromNumber(ctx context.Context, projectID uuid.UUID, fromNumber int) error {
	query := `DELETE FROM chapters WHERE project_id = $1 AND chapter_number >= $2`
	_, err := r.db.Exec(ctx, query, projectID, fromNumber)
	return err
}

func (r *ChapterRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	query := `DELETE FROM chapters WHERE project_id = $1`
	_, err := r.db.Exec(ctx, query, projectID)
	return err
}

func scanChapter(row rowScanner) (*chapter.Chapter, error) {
	var c chapter.Chapter
	var status string
	var analysisData []byte
	if err := row.Scan(
		&c.ID, &c.ProjectID, &c.ChapterNumber, &status, &c.SelectedVersionID,
		&c.WordCount, &c.RealSummary, &analysisData, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = chapter.Status(status)
	if len(analysisData) > 0 {
		var data chapter.AnalysisData
		if err := json.Unmarshal(analysisData, &data); err != nil {
			return nil, err
		}
		c.AnalysisData = &data
	}
	return &c, nil
}

func marshalAnalysis(data *chapter.AnalysisData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}
