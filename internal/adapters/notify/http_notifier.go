// Package notify implements ports/notify.ChapterNotifier as a plain HTTP
// JSON callback, generalized from the teacher's static HTTP client
// (llm-gateway-service/internal/adapters/http/main_service_static_client.go)
// rather than its gRPC client: the pack carries main-service's gRPC proto
// packages only by import path, with no checked-in generated .pb.go code to
// adapt, and protoc is not available in this environment to regenerate them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// HTTPNotifier posts a chapter-ready callback to an external URL.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNotifier creates an HTTPNotifier posting to baseURL + "/chapters/ready".
// An empty baseURL makes NotifyChapterReady a no-op, for deployments with no
// downstream reader configured.
func NewHTTPNotifier(baseURL string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type chapterReadyPayload struct {
	ProjectID     string `json:"project_id"`
	ChapterNumber int    `json:"chapter_number"`
}

// NotifyChapterReady posts a chapterReadyPayload to baseURL + "/chapters/ready".
// Per §5 this is best-effort: callers log and swallow the returned error
// rather than gate continuity work on a downstream system being reachable.
func (n *HTTPNotifier) NotifyChapterReady(ctx context.Context, projectID string, chapterNumber int) error {
	if n.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(chapterReadyPayload{ProjectID: projectID, ChapterNumber: chapterNumber})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/chapters/ready", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("chapter notify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chapter notify returned status %d", resp.StatusCode)
	}
	return nil
}
