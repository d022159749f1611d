// Package ollama implements C1's embedding call against a local Ollama
// server, generalized from the teacher's
// internal/adapters/embeddings/ollama package in llm-gateway-service.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

const defaultDimension = 768

// Client embeds text against a local Ollama server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an Ollama embeddings client against baseURL (default
// http://localhost:11434 if empty).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text using model (apiKey is
// unused; Ollama runs unauthenticated locally, kept in the signature so
// callers can treat every embedding provider uniformly).
func (c *Client) Embed(ctx context.Context, apiKey, model, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &apperrors.LLMTransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama embeddings request failed with status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, &apperrors.LLMEmptyError{}
	}
	return parsed.Embedding, nil
}

// Dimension reports the embedding width for the default nomic-embed-text model.
func (c *Client) Dimension() int { return defaultDimension }
