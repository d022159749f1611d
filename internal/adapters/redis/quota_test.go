package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

func newTestQuota(t *testing.T, limit int) *QuotaCounter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuotaCounter(client, limit)
}

func TestQuotaCounter_CheckAllowsUntilLimit(t *testing.T) {
	q := newTestQuota(t, 2)
	ctx := context.Background()

	if err := q.Check(ctx, "user-1"); err != nil {
		t.Fatalf("expected no error on fresh counter, got %v", err)
	}
	if err := q.Increment(ctx, "user-1", 2); err != nil {
		t.Fatalf("unexpected error incrementing to limit: %v", err)
	}
	if err := q.Check(ctx, "user-1"); err == nil {
		t.Fatal("expected Check to reject once count meets limit")
	} else if _, ok := err.(*apperrors.RateLimitedError); !ok {
		t.Errorf("expected *apperrors.RateLimitedError, got %T", err)
	}
}

func TestQuotaCounter_IncrementRejectsOverLimit(t *testing.T) {
	q := newTestQuota(t, 3)
	ctx := context.Background()

	if err := q.Increment(ctx, "user-1", 3); err != nil {
		t.Fatalf("unexpected error reaching limit exactly: %v", err)
	}
	err := q.Increment(ctx, "user-1", 1)
	if err == nil {
		t.Fatal("expected error once increment pushes count over the limit")
	}
	if _, ok := err.(*apperrors.RateLimitedError); !ok {
		t.Errorf("expected *apperrors.RateLimitedError, got %T", err)
	}
}

func TestQuotaCounter_SeparateUsersDoNotShareCounters(t *testing.T) {
	q := newTestQuota(t, 1)
	ctx := context.Background()

	if err := q.Increment(ctx, "user-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Check(ctx, "user-2"); err != nil {
		t.Errorf("user-2's counter should be unaffected by user-1's usage, got %v", err)
	}
}
