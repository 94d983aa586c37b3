package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	accessKey  = "access_token"
	refreshKey = "refresh_token"
	expiryKey  = "token_expiry"
)

// RedisBackend stores the record under three keys sharing a prefix. Writes
// and deletes run in a single MULTI/EXEC, reads use one MGET, so readers
// on other processes never observe a mixed pair.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a backend using prefix as the key namespace. A
// positive ttl expires all three keys together; zero keeps them until Clear.
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (b *RedisBackend) key(name string) string {
	return b.prefix + name
}

func (b *RedisBackend) Load(ctx context.Context) (Record, error) {
	vals, err := b.redis.MGet(ctx, b.key(accessKey), b.key(refreshKey), b.key(expiryKey)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec := Record{
		Access:  stringValue(vals, 0),
		Refresh: stringValue(vals, 1),
	}
	if raw := stringValue(vals, 2); raw != "" {
		exp, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			rec.ExpiresAt = exp
		}
	}
	if rec.Access == "" {
		return Record{}, nil
	}
	return rec, nil
}

func (b *RedisBackend) Save(ctx context.Context, rec Record) error {
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key(accessKey), rec.Access, b.ttl)
		pipe.Set(ctx, b.key(refreshKey), rec.Refresh, b.ttl)
		pipe.Set(ctx, b.key(expiryKey), strconv.FormatInt(rec.ExpiresAt, 10), b.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Clear(ctx context.Context) error {
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key(accessKey), b.key(refreshKey), b.key(expiryKey))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func stringValue(vals []any, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}
