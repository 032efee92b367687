package auth

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklist keeps revoked tokens in one Redis set so every replica
// shares the same view.  The set has no TTL.
type RedisBlacklist struct {
	rdb *redis.Client
	key string
}

func NewRedisBlacklist(rdb *redis.Client, key string) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, key: key}
}

func (b *RedisBlacklist) Add(ctx context.Context, token string) error {
	return b.rdb.SAdd(ctx, b.key, token).Err()
}

func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	return b.rdb.SIsMember(ctx, b.key, token).Result()
}
