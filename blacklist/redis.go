package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis failure of [Redis].
var ErrRedisUnavailable = errors.New("blacklist redis unavailable")

// Redis stores revocations as keys with a TTL equal to the token's remaining
// lifetime.
type Redis struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis returns a Redis-backed blacklist. prefix defaults to "aa".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "aa"
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (r *Redis) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + ":bl:" + hex.EncodeToString(sum[:])
}

// Add revokes token until expiresAt. Tokens already expired are ignored.
func (r *Redis) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *Redis) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Cleanup is a no-op: Redis expires the keys itself.
func (r *Redis) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}
