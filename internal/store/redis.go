// Package store persists game state in Redis. Accounts and seasons are
// RedisJSON documents; quotes are plain values with a TTL aligned to the
// next market open.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxConnectAttempts = 5

// Connect dials Redis and verifies it with a ping, retrying a bounded
// number of times. Callers treat an error here as fatal.
func Connect(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	delay := 500 * time.Millisecond
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		if attempt == maxConnectAttempts {
			break
		}
		logger.Warn("redis ping failed, retrying", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	_ = client.Close()
	return nil, fmt.Errorf("connect redis after %d attempts: %w", maxConnectAttempts, err)
}
