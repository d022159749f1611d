// Package gemini implements the chat-completion side of C1 against the
// Gemini generateContent API, generalized from the teacher's single
// prompt-in/text-out RouterModel.Generate into the full
// system-prompt+message-history+json-mode+finish-reason contract of §4.1.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/ports/llm"
)

const defaultModel = "gemini-1.5-flash"

// Client completes chat requests against the Gemini API.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Gemini completion client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 60 * time.Second}}
}

type requestPayload struct {
	Contents         []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type responsePayload struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// Complete issues one chat completion against apiKey/model, honoring
// opts.Temperature/MaxTokens/ResponseFormat/Timeout, with the retry/backoff
// policy of §4.1 for transient transport and rate-limit faults.
func (c *Client) Complete(ctx context.Context, apiKey, model, systemPrompt string, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	if apiKey == "" {
		return "", errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client := c.httpClient
	if opts.Timeout > 0 {
		client = &http.Client{Timeout: opts.Timeout}
	}

	contents := make([]content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	body := requestPayload{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     float32(opts.Temperature),
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if systemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	if opts.ResponseFormat == llm.ResponseFormatJSONObject {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, finishReason, blockReason, err := c.doRequest(ctx, client, apiKey, model, body)
		if err != nil {
			var transient *apperrors.LLMTransientError
			if errors.As(err, &transient) && attempt < maxAttempts {
				time.Sleep(backoffDuration(attempt))
				continue
			}
			return "", err
		}

		if finishReason != "" && finishReason != "STOP" {
			if strings.TrimSpace(text) == "" {
				if attempt < maxAttempts {
					time.Sleep(backoffDuration(attempt))
					continue
				}
				return "", &apperrors.LLMEmptyError{}
			}
			return "", &apperrors.LLMTruncatedError{}
		}
		if blockReason != "" && strings.TrimSpace(text) == "" {
			return "", &apperrors.LLMEmptyError{}
		}
		return text, nil
	}
	return "", &apperrors.LLMTransientError{Cause: errors.New("exhausted retries")}
}

func (c *Client) doRequest(ctx context.Context, client *http.Client, apiKey, model string, body requestPayload) (text, finishReason, blockReason string, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		model, apiKey,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", "", "", &apperrors.LLMTransientError{Cause: err}
	}
	defer resp.Body.Close()

	if shouldRetryGeminiStatus(resp.StatusCode) {
		return "", "", "", &apperrors.LLMTransientError{Cause: fmt.Errorf("gemini status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", "", fmt.Errorf("gemini request failed with status %d", resp.StatusCode)
	}

	var parsed responsePayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		if parsed.PromptFeedback != nil {
			return "", "", parsed.PromptFeedback.BlockReason, nil
		}
		return "", "", "", &apperrors.LLMEmptyError{}
	}

	cand := parsed.Candidates[0]
	block := ""
	if parsed.PromptFeedback != nil {
		block = parsed.PromptFeedback.BlockReason
	}
	return cand.Content.Parts[0].Text, cand.FinishReason, block, nil
}

func shouldRetryGeminiStatus(status int) bool {
	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

func backoffDuration(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}
