package db

import (
	"context"
	"fmt"
	"time"

	"scheduled-mailer/internal/pkg/config"

	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 3
	retryInterval   = 500 * time.Millisecond
)

// ConnectRedis parses the URL and pings until the server answers or the
// attempts run out.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var lastErr error
	for range connectAttempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to ping redis: %w", lastErr)
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("failed to ping redis: %w", lastErr)
}
