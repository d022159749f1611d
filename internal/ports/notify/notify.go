// Package notify declares the cross-process notification hook fired
// after chapter ingestion succeeds, generalized from the teacher's
// main_service_client gRPC pairing (DOMAIN STACK, SPEC_FULL.md §2.2).
package notify

import "context"

// ChapterNotifier notifies an out-of-scope downstream reader that a
// chapter's continuity substrate (vectors + indices) has been updated.
// Failures are logged and swallowed by callers — continuity is never
// gated on the downstream system (§5).
type ChapterNotifier interface {
	NotifyChapterReady(ctx context.Context, projectID string, chapterNumber int) error
}
