package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/engine/internal/core/llmconfig"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.UserLLMConfigRepository = (*UserLLMConfigRepository)(nil)

// UserLLMConfigRepository implements repositories.UserLLMConfigRepository.
type UserLLMConfigRepository struct {
	db *DB
}

// NewUserLLMConfigRepository creates a new user LLM config repository.
func NewUserLLMConfigRepository(db *DB) *UserLLMConfigRepository {
	return &UserLLMConfigRepository{db: db}
}

func (r *UserLLMConfigRepository) GetActive(ctx context.Context, userID string) (*llmconfig.UserLLMConfig, error) {
	query := `
		SELECT id, user_id, provider, api_key, model, active, created_at, updated_at
		FROM user_llm_configs
		WHERE user_id = $1 AND active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var c llmconfig.UserLLMConfig
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.ID, &c.UserID, &c.Provider, &c.APIKey, &c.Model, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "user_llm_config", ID: userID}
		}
		return nil, err
	}
	return &c, nil
}
