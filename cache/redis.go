package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joeychilson/chatimport/transcript"
)

// RedisCache is a Redis-backed transcript cache.
type RedisCache struct {
	client *redis.Client
	config Config
}

// NewRedis creates a Redis cache with the provided client and configuration.
func NewRedis(client *redis.Client, config Config) *RedisCache {
	return &RedisCache{
		client: client,
		config: applyDefaults(config),
	}
}

// Get retrieves a transcript from Redis. Expiry is handled by Redis TTLs.
func (c *RedisCache) Get(ctx context.Context, sourceURL string) (*transcript.Transcript, error) {
	data, err := c.client.Get(ctx, c.key(sourceURL)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var t transcript.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached transcript: %w", err)
	}

	return &t, nil
}

// Set stores a transcript in Redis with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, sourceURL string, t *transcript.Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := c.client.Set(ctx, c.key(sourceURL), data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Delete removes the entry for a source URL.
func (c *RedisCache) Delete(ctx context.Context, sourceURL string) error {
	if err := c.client.Del(ctx, c.key(sourceURL)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (c *RedisCache) Close() error {
	return nil
}

func (c *RedisCache) key(sourceURL string) string {
	return c.config.Prefix + "transcript:" + sourceURL
}
