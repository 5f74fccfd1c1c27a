package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The first hit of a window sets its expiry; every hit reports the TTL left.
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {c, redis.call('PTTL', KEYS[1])}
`)

// Never recreate a window that already expired.
var decrScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('DECR', KEYS[1])
end
return 0
`)

// RedisStore shares counters between instances. Windows expire through
// Redis key TTLs, so no sweeping is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, length time.Duration) (int, time.Time, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.prefix + key}, length.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis incr: unexpected reply %v", res)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = length
	}
	return int(res[0]), time.Now().Add(ttl), nil
}

func (s *RedisStore) Decr(ctx context.Context, key string) error {
	if err := decrScript.Run(ctx, s.client, []string{s.prefix + key}).Err(); err != nil {
		return fmt.Errorf("redis decr: %w", err)
	}
	return nil
}
