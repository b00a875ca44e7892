package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the cooldown with SET NX EX so every instance of the service
// shares one throttle window.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis wraps a Redis client. Keys are namespaced under the prefix.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, prefix: "mosolo:notify:"}
}

// Acquire claims the slot atomically; a held slot returns false.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown acquire: %w", err)
	}
	return ok, nil
}
