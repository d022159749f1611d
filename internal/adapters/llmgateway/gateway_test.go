package llmgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/novelforge/engine/internal/core/llmconfig"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/llm"
)

type fakeCompleter struct {
	gotAPIKey string
	gotModel  string
	response  string
	err       error
}

func (f *fakeCompleter) Complete(ctx context.Context, apiKey, model, systemPrompt string, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	f.gotAPIKey = apiKey
	f.gotModel = model
	return f.response, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, apiKey, model, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (fakeEmbedder) Dimension() int { return 2 }

type fakeUserConfigs struct {
	cfg *llmconfig.UserLLMConfig
}

func (f *fakeUserConfigs) GetActive(ctx context.Context, userID string) (*llmconfig.UserLLMConfig, error) {
	if f.cfg == nil {
		return nil, &apperrors.NotFoundError{Resource: "user_llm_config", ID: userID}
	}
	return f.cfg, nil
}

type fakeQuota struct {
	checkErr    error
	incremented int
}

func (f *fakeQuota) Check(ctx context.Context, userID string) error { return f.checkErr }
func (f *fakeQuota) Increment(ctx context.Context, userID string, n int) error {
	f.incremented += n
	return nil
}

func TestGateway_ResolveConfig_prefersUsersOwnKey(t *testing.T) {
	uc := &fakeUserConfigs{cfg: &llmconfig.UserLLMConfig{Provider: "openai", APIKey: "user-key", Model: "gpt-4", Active: true}}
	g := New(&fakeCompleter{}, fakeEmbedder{}, "text-embedding-3-small", uc, &fakeQuota{}, SystemDefaults{Provider: "gemini", APIKey: "sys-key", Model: "gemini-pro"})

	cfg, err := g.ResolveConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.UsesOwnKey || cfg.APIKey != "user-key" {
		t.Errorf("expected user's own key to win, got %+v", cfg)
	}
}

func TestGateway_ResolveConfig_fallsBackToSystemDefaults(t *testing.T) {
	uc := &fakeUserConfigs{}
	g := New(&fakeCompleter{}, fakeEmbedder{}, "text-embedding-3-small", uc, &fakeQuota{}, SystemDefaults{Provider: "gemini", APIKey: "sys-key", Model: "gemini-pro"})

	cfg, err := g.ResolveConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UsesOwnKey || cfg.APIKey != "sys-key" {
		t.Errorf("expected system default key, got %+v", cfg)
	}
}

func TestGateway_ResolveConfig_ignoresInactiveConfig(t *testing.T) {
	uc := &fakeUserConfigs{cfg: &llmconfig.UserLLMConfig{Provider: "openai", APIKey: "user-key", Active: false}}
	g := New(&fakeCompleter{}, fakeEmbedder{}, "", uc, &fakeQuota{}, SystemDefaults{APIKey: "sys-key"})

	cfg, err := g.ResolveConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UsesOwnKey {
		t.Errorf("expected inactive config to be ignored, got %+v", cfg)
	}
}

func TestGateway_Complete_checksQuotaOnlyForSystemKey(t *testing.T) {
	quota := &fakeQuota{checkErr: errors.New("quota exceeded")}
	uc := &fakeUserConfigs{cfg: &llmconfig.UserLLMConfig{APIKey: "user-key", Active: true}}
	g := New(&fakeCompleter{response: "ok"}, fakeEmbedder{}, "", uc, quota, SystemDefaults{APIKey: "sys-key"})

	// user has their own key: quota is never consulted, even though it would error.
	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error when using own key: %v", err)
	}

	// no user id / system key in use: quota check applies.
	uc.cfg = nil
	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-2"}); err == nil {
		t.Fatal("expected quota error for system-key completion")
	}
}

func TestGateway_Complete_skipsQuotaWhenRequested(t *testing.T) {
	quota := &fakeQuota{checkErr: errors.New("quota exceeded")}
	uc := &fakeUserConfigs{}
	g := New(&fakeCompleter{response: "ok"}, fakeEmbedder{}, "", uc, quota, SystemDefaults{APIKey: "sys-key"})

	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-1", SkipQuotaCheck: true}); err != nil {
		t.Fatalf("unexpected error with SkipQuotaCheck: %v", err)
	}
}

func TestGateway_Complete_incrementsQuotaUnlessSkipped(t *testing.T) {
	quota := &fakeQuota{}
	uc := &fakeUserConfigs{}
	g := New(&fakeCompleter{response: "ok"}, fakeEmbedder{}, "", uc, quota, SystemDefaults{APIKey: "sys-key"})

	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota.incremented != 1 {
		t.Errorf("expected quota incremented once, got %d", quota.incremented)
	}

	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-1", SkipUsageTracking: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota.incremented != 1 {
		t.Errorf("expected quota unchanged when SkipUsageTracking set, got %d", quota.incremented)
	}
}

func TestGateway_Complete_usesCachedConfig(t *testing.T) {
	completer := &fakeCompleter{response: "ok"}
	uc := &fakeUserConfigs{cfg: &llmconfig.UserLLMConfig{APIKey: "user-key", Active: true}}
	g := New(completer, fakeEmbedder{}, "", uc, &fakeQuota{}, SystemDefaults{APIKey: "sys-key"})

	cached := &llm.ResolvedConfig{APIKey: "cached-key", Model: "cached-model", UsesOwnKey: true}
	if _, err := g.Complete(context.Background(), "sys", nil, llm.CompleteOptions{UserID: "user-1", CachedConfig: cached}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completer.gotAPIKey != "cached-key" {
		t.Errorf("expected cached config to bypass resolution, got api key %q", completer.gotAPIKey)
	}
}

func TestCleanCompletion_stripsThinkBlockAndFence(t *testing.T) {
	raw := "<think>reasoning about the chapter</think>\n```json\n{\"title\":\"x\"}\n```"
	got := cleanCompletion(raw)
	want := `{"title":"x"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCleanCompletion_passesThroughPlainText(t *testing.T) {
	got := cleanCompletion("plain response, no wrapping")
	if got != "plain response, no wrapping" {
		t.Errorf("unexpected mutation of plain text: %q", got)
	}
}

func TestGateway_Embed_usesUsersOwnKeyWhenPresent(t *testing.T) {
	uc := &fakeUserConfigs{cfg: &llmconfig.UserLLMConfig{APIKey: "user-key", Active: true}}
	g := New(&fakeCompleter{}, fakeEmbedder{}, "default-model", uc, &fakeQuota{}, SystemDefaults{APIKey: "sys-key"})

	vec, err := g.Embed(context.Background(), "some text", llm.EmbedOptions{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("expected embedding of dimension 2, got %d", len(vec))
	}
}
