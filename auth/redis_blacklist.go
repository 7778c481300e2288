package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklist keeps revoked tokens as expiring Redis keys.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client, prefix string) *RedisBlacklist {
	return &RedisBlacklist{client: client, prefix: prefix, now: time.Now}
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		// Already expired; the token cannot be used anyway.
		return nil
	}
	return b.client.SetNX(ctx, b.key(jti), strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	return n > 0, err
}

// Flush is a no-op: Redis expires the keys itself.
func (b *RedisBlacklist) Flush(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (b *RedisBlacklist) key(jti string) string {
	return b.prefix + jti
}
