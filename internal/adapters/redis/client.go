// Package redis backs C1's daily-quota counters with atomic INCR+EXPIRE
// keys, generalized from the teacher's internal/adapters/redis
// (llm-gateway-service) which uses the same client-construction shape
// for its sorted-set debounce queues.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/novelforge/engine/internal/platform/config"
)

// NewClient creates and pings a Redis client.
func NewClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
