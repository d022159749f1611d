// Package llm declares the C1 gateway contract: a uniform async
// interface for chat completion and embedding, generalized from the
// teacher's single-purpose RouterModel.Generate to the full contract of
// §4.1.
package llm

import (
	"context"
	"time"
)

// ResponseFormat selects how the provider should shape its output.
type ResponseFormat string

const (
	ResponseFormatText       ResponseFormat = "text"
	ResponseFormatJSONObject ResponseFormat = "json_object"
)

// Role is a chat message's author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of chat history.
type Message struct {
	Role    Role
	Content string
}

// ResolvedConfig is a per-user LLM configuration resolved once and
// reusable across a batch of concurrent calls via CompleteOptions.CachedConfig
// (§4.1 "caller MAY pass cached_config to skip per-call resolution").
type ResolvedConfig struct {
	Provider    string
	APIKey      string
	Model       string
	UsesOwnKey  bool // true if resolved from the user's own config, not system defaults
}

// CompleteOptions carries the knobs of §4.1's complete operation.
type CompleteOptions struct {
	Temperature      float64
	ResponseFormat   ResponseFormat
	MaxTokens        int
	Timeout          time.Duration
	UserID           string
	SkipUsageTracking bool
	SkipQuotaCheck    bool
	CachedConfig      *ResolvedConfig
}

// EmbedOptions carries the knobs of §4.1's embed operation.
type EmbedOptions struct {
	UserID string
	Model  string
}

// Gateway is the uniform async contract of C1: chat completion (json-mode
// capable) and embedding, with config resolution, daily-quota accounting,
// and retry/backoff on transport faults handled internally (§4.1).
type Gateway interface {
	// Complete returns the assistant content with any <think>...</think>
	// preambles stripped and markdown code fences unwrapped.
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts CompleteOptions) (string, error)
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string, opts EmbedOptions) ([]float32, error)
	// ResolveConfig performs the config-resolution policy of §4.1 once,
	// for reuse as CompleteOptions.CachedConfig across a fan-out batch.
	ResolveConfig(ctx context.Context, userID string) (*ResolvedConfig, error)
	// CheckQuota performs a single pre-check of the daily quota without
	// incrementing it, for the "pre-check once, skip per-call" pattern
	// of §4.1/§4.12.
	CheckQuota(ctx context.Context, userID string) error
	// IncrementQuota increments the per-user daily counter by n,
	// performed post-fan-out exactly once per successful batch (§4.12
	// step 8, §9 design notes).
	IncrementQuota(ctx context.Context, userID string, n int) error
}
