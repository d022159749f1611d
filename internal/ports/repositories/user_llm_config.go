package repositories

import (
	"context"

	"github.com/novelforge/engine/internal/core/llmconfig"
)

// UserLLMConfigRepository looks up a user's own LLM provider override,
// backing C1's config-resolution policy (§4.1).
type UserLLMConfigRepository interface {
	// GetActive returns userID's active config, or a NotFoundError if the
	// user has none (callers then fall back to system defaults).
	GetActive(ctx context.Context, userID string) (*llmconfig.UserLLMConfig, error)
}
