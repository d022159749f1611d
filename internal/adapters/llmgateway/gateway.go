// Package llmgateway composes the completion client, embedding client,
// user-config repository, and quota counter into the single C1
// ports/llm.Gateway contract, implementing §4.1's three-tier config
// resolution ("user's own key, else system defaults, else environment
// defaults") and daily-quota accounting. No teacher file plays this exact
// composition-root role: llm-gateway-service wires its RouterModel
// straight off env config with no per-user override, so this file is
// new, grounded on the teacher's overall "adapters implement ports,
// composed in cmd/" wiring discipline rather than one specific source.
package llmgateway

import (
	"context"
	"regexp"
	"strings"

	"github.com/novelforge/engine/internal/core/llmconfig"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// completer is satisfied by adapters/llm/gemini.Client.
type completer interface {
	Complete(ctx context.Context, apiKey, model, systemPrompt string, messages []llm.Message, opts llm.CompleteOptions) (string, error)
}

// embedder is satisfied by adapters/embeddings/{openai,ollama}.Client.
type embedder interface {
	Embed(ctx context.Context, apiKey, model, text string) ([]float32, error)
	Dimension() int
}

// quota is satisfied by adapters/redis.QuotaCounter.
type quota interface {
	Check(ctx context.Context, userID string) error
	Increment(ctx context.Context, userID string, n int) error
}

// SystemDefaults is the env-resolved fallback config (§4.1's second and
// third tiers are collapsed into one value here since
// platform/config.Load already resolves LLM_API_KEY with a GEMINI_API_KEY
// environment fallback).
type SystemDefaults struct {
	Provider string
	APIKey   string
	Model    string
}

// Gateway implements ports/llm.Gateway.
type Gateway struct {
	completer      completer
	embedder       embedder
	embeddingModel string
	userConfigs    repositories.UserLLMConfigRepository
	quota          quota
	system         SystemDefaults
}

// New builds a Gateway. embeddingModel is the default model name passed
// to embedder.Embed when EmbedOptions.Model is empty.
func New(completer completer, embedder embedder, embeddingModel string, userConfigs repositories.UserLLMConfigRepository, quota quota, system SystemDefaults) *Gateway {
	return &Gateway{
		completer:      completer,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		userConfigs:    userConfigs,
		quota:          quota,
		system:         system,
	}
}

var _ llm.Gateway = (*Gateway)(nil)

// ResolveConfig implements the three-tier policy of §4.1.
func (g *Gateway) ResolveConfig(ctx context.Context, userID string) (*llm.ResolvedConfig, error) {
	if userID != "" && g.userConfigs != nil {
		cfg, err := g.userConfigs.GetActive(ctx, userID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if cfg.HasOwnKey() {
			return &llm.ResolvedConfig{
				Provider:   cfg.Provider,
				APIKey:     cfg.APIKey,
				Model:      cfg.Model,
				UsesOwnKey: true,
			}, nil
		}
	}
	return &llm.ResolvedConfig{
		Provider:   g.system.Provider,
		APIKey:     g.system.APIKey,
		Model:      g.system.Model,
		UsesOwnKey: false,
	}, nil
}

// CheckQuota implements the pre-check half of §4.1/§4.12's batch pattern.
func (g *Gateway) CheckQuota(ctx context.Context, userID string) error {
	if g.quota == nil {
		return nil
	}
	return g.quota.Check(ctx, userID)
}

// IncrementQuota implements the post-fan-out accounting of §4.12 step 8.
func (g *Gateway) IncrementQuota(ctx context.Context, userID string, n int) error {
	if g.quota == nil || n <= 0 {
		return nil
	}
	return g.quota.Increment(ctx, userID, n)
}

// Complete resolves config (unless cached), enforces the daily quota when
// the system default key is in use, issues the completion, and cleans up
// the response per the Gateway doc comment (strip <think> preambles,
// unwrap markdown code fences).
func (g *Gateway) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	cfg := opts.CachedConfig
	if cfg == nil {
		resolved, err := g.ResolveConfig(ctx, opts.UserID)
		if err != nil {
			return "", err
		}
		cfg = resolved
	}

	if !cfg.UsesOwnKey && !opts.SkipQuotaCheck && opts.UserID != "" {
		if err := g.CheckQuota(ctx, opts.UserID); err != nil {
			return "", err
		}
	}

	text, err := g.completer.Complete(ctx, cfg.APIKey, cfg.Model, systemPrompt, messages, opts)
	if err != nil {
		return "", err
	}

	if !cfg.UsesOwnKey && !opts.SkipUsageTracking && opts.UserID != "" {
		if err := g.IncrementQuota(ctx, opts.UserID, 1); err != nil {
			return "", err
		}
	}

	return cleanCompletion(text), nil
}

// Embed resolves config (embedding calls don't consume the chat quota),
// picks opts.Model over the gateway's configured default, and embeds text.
func (g *Gateway) Embed(ctx context.Context, text string, opts llm.EmbedOptions) ([]float32, error) {
	model := opts.Model
	if model == "" {
		model = g.embeddingModel
	}

	apiKey := g.system.APIKey
	if opts.UserID != "" && g.userConfigs != nil {
		cfg, err := g.userConfigs.GetActive(ctx, opts.UserID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if cfg.HasOwnKey() {
			apiKey = cfg.APIKey
		}
	}

	return g.embedder.Embed(ctx, apiKey, model, text)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanCompletion strips <think>...</think> preambles some providers emit
// before the actual answer and unwraps a single enclosing markdown code
// fence, matching the Gateway.Complete doc contract.
func cleanCompletion(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return unwrapFence(text)
}

func unwrapFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) < 2 {
		return text
	}
	body := lines[1]
	body = strings.TrimSuffix(strings.TrimRight(body, "\n"), "```")
	return strings.TrimSpace(body)
}
