package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/config"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

const compatibilityKeyPrefix = "cupid:compat:"

// NewRedis creates a Redis client and checks the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// CompatibilityCache keeps compatibility results for a pair until ttl
// expires. Entries older than ttl are treated as stale and recomputed.
type CompatibilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCompatibilityCache(client *redis.Client, ttl time.Duration) *CompatibilityCache {
	return &CompatibilityCache{client: client, ttl: ttl}
}

func compatibilityKey(requesterID, candidateID int) string {
	return fmt.Sprintf("%s%d:%d", compatibilityKeyPrefix, requesterID, candidateID)
}

func (c *CompatibilityCache) Get(ctx context.Context, requesterID, candidateID int) (*matching.CompatibilityResult, bool, error) {
	raw, err := c.client.Get(ctx, compatibilityKey(requesterID, candidateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var r matching.CompatibilityResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &r, true, nil
}

func (c *CompatibilityCache) Set(ctx context.Context, requesterID, candidateID int, r matching.CompatibilityResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, compatibilityKey(requesterID, candidateID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
