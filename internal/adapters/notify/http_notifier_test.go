package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPNotifier_PostsExpectedPayload(t *testing.T) {
	var gotPath string
	var gotPayload chapterReadyPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL)
	if err := n.NotifyChapterReady(context.Background(), "proj-1", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/chapters/ready" {
		t.Errorf("expected path /chapters/ready, got %q", gotPath)
	}
	if gotPayload.ProjectID != "proj-1" || gotPayload.ChapterNumber != 7 {
		t.Errorf("unexpected payload: %+v", gotPayload)
	}
}

func TestHTTPNotifier_ErrorsOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL)
	if err := n.NotifyChapterReady(context.Background(), "proj-1", 1); err == nil {
		t.Fatal("expected error on 5xx response")
	}
}

func TestHTTPNotifier_EmptyBaseURLIsNoop(t *testing.T) {
	n := NewHTTPNotifier("")
	if err := n.NotifyChapterReady(context.Background(), "proj-1", 1); err != nil {
		t.Errorf("expected no-op with empty base URL, got %v", err)
	}
}

func TestHTTPNotifier_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL + "/")
	if err := n.NotifyChapterReady(context.Background(), "proj-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/chapters/ready" {
		t.Errorf("expected trailing slash to be trimmed, got path %q", gotPath)
	}
}
