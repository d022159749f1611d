// Package openai implements C1's embedding call against the OpenAI
// embeddings API, generalized from the teacher's NewOpenAIEmbedder shape
// (internal/adapters/embeddings/openai in llm-gateway-service) to accept
// a per-call apiKey/model override (§4.1 config resolution).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

const defaultDimension = 1536

// Client embeds text against the OpenAI API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an OpenAI embeddings client against baseURL (default
// https://api.openai.com/v1 if empty).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text using apiKey/model.
func (c *Client) Embed(ctx context.Context, apiKey, model, text string) ([]float32, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if text == "" {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{Model: model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &apperrors.LLMTransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai embeddings request failed with status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, &apperrors.LLMEmptyError{}
	}
	return parsed.Data[0].Embedding, nil
}

// Dimension reports the embedding width for text-embedding-ada-002/3-small.
func (c *Client) Dimension() int { return defaultDimension }
