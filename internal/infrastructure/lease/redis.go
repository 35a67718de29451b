package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisManager issues leases with SET NX PX.
type RedisManager struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisManager creates a lease manager on client. Keys are namespaced by prefix.
func NewRedisManager(client redis.UniversalClient, prefix string) *RedisManager {
	return &RedisManager{client: client, prefix: prefix}
}

// Acquire takes key for ttl or returns ErrHeld.
func (m *RedisManager) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	fullKey := m.prefix + key
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &redisLease{client: m.client, key: fullKey, token: token}, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLease) Key() string { return l.key }

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
