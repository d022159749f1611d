package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novelforge/engine/internal/platform/apperrors"
)

// QuotaCounter implements the daily per-user request counter of §4.1:
// "when using system defaults, increment a per-user day counter and
// reject with a rate-limited error when it exceeds the admin-configured
// limit". One INCR+EXPIRE key per (user, day), same atomic-counter
// primitive the teacher's sorted-set debounce queues build on.
type QuotaCounter struct {
	client *redis.Client
	limit  int
}

// NewQuotaCounter creates a QuotaCounter enforcing limit requests/day.
func NewQuotaCounter(client *redis.Client, limit int) *QuotaCounter {
	return &QuotaCounter{client: client, limit: limit}
}

func (q *QuotaCounter) key(userID string) string {
	return fmt.Sprintf("llm:quota:%s:%s", userID, time.Now().UTC().Format("2006-01-02"))
}

// Check reports the current count without incrementing it, rejecting
// with a RateLimitedError if it already meets the limit (§4.1's
// "pre-check once, skip per-call" pattern for fan-out batches).
func (q *QuotaCounter) Check(ctx context.Context, userID string) error {
	count, err := q.client.Get(ctx, q.key(userID)).Int()
	if err != nil && err != redis.Nil {
		return err
	}
	if count >= q.limit {
		return &apperrors.RateLimitedError{UserID: userID, Limit: q.limit}
	}
	return nil
}

// Increment adds n to userID's counter for today and resets the key's
// expiry to 25h on every call, so counters self-clean.
func (q *QuotaCounter) Increment(ctx context.Context, userID string, n int) error {
	key := q.key(userID)
	pipe := q.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(n))
	pipe.Expire(ctx, key, 25*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if incr.Val() > int64(q.limit) {
		return &apperrors.RateLimitedError{UserID: userID, Limit: q.limit}
	}
	return nil
}
