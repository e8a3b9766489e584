package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"minichat/pkg/domain"
)

const profileKeyPrefix = "minichat:profile:"

// ProfileCache keeps userinfo responses in Redis with a TTL so each request
// does not round-trip to the identity provider.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache builds a Redis-backed profile cache.
func NewProfileCache(addr, password string, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProfileCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// Get returns the cached profile for a subject.
func (c *ProfileCache) Get(ctx context.Context, subject string) (domain.Identity, bool, error) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+subject).Result()
	if err == redis.Nil {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, err
	}
	var profile domain.Identity
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		return domain.Identity{}, false, nil
	}
	return profile, true, nil
}

// Put stores a profile with the configured TTL.
func (c *ProfileCache) Put(ctx context.Context, profile domain.Identity) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKeyPrefix+profile.Subject, raw, c.ttl).Err()
}
