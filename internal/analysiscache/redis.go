package analysiscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liaizen/mediation-plane/pkg/models"
)

const redisKeyPrefix = "liaizen:analysis:"

// Redis is a Cache backed by a shared Redis instance, for deployments
// running more than one mediation-plane replica. Expiry is delegated to
// Redis TTLs; capacity is left to the server's eviction policy.
type Redis struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client, maxAge time.Duration) *Redis {
	return &Redis{client: client, maxAge: maxAge}
}

func redisKey(fingerprint string) string {
	return redisKeyPrefix + fingerprint
}

// Get fetches and decodes a cached decision.
func (r *Redis) Get(ctx context.Context, fingerprint string) (*models.Decision, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var d models.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// A corrupt entry is treated as a miss; the pipeline recomputes.
		return nil, false, nil
	}
	return &d, true, nil
}

// Set encodes and stores a decision with the configured TTL.
func (r *Redis) Set(ctx context.Context, fingerprint string, d *models.Decision) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(fingerprint), raw, r.maxAge).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
