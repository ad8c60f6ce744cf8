package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New creates a client from the configured URL
func New(cfg *Config) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return redis.NewClient(opt), nil
}

// Ping checks that the server answers
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}
