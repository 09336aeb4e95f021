package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"studyhub/internal/domain"
)

// renew extends the lease if this owner holds it and takes it over if it has lapsed.
var renewScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if not v then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// AttemptLease implements app.Lease. Each gateway process owns the attempts it runs; the
// marker quiz:attempt:{user}:{quiz} carries the owning instance id and expires unless renewed.
type AttemptLease struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

func NewAttemptLease(client *redis.Client, ttl time.Duration) *AttemptLease {
	return &AttemptLease{client: client, owner: uuid.NewString(), ttl: ttl}
}

// Owner is the instance id written into the markers.
func (l *AttemptLease) Owner() string {
	return l.owner
}

func (l *AttemptLease) Acquire(ctx context.Context, key string) error {
	ok, err := l.client.SetNX(ctx, l.key(key), l.owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if ok {
		return nil
	}
	return l.Renew(ctx, key)
}

func (l *AttemptLease) Renew(ctx context.Context, key string) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key(key)}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("renew %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrAttemptConflict
	}
	return nil
}

func (l *AttemptLease) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(key)}, l.owner).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Holder returns the instance currently holding key, or "" if nobody does.
func (l *AttemptLease) Holder(ctx context.Context, key string) (string, error) {
	owner, err := l.client.Get(ctx, l.key(key)).Result()
	if isMiss(err) {
		return "", nil
	}
	return owner, err
}

func (l *AttemptLease) key(key string) string {
	return "quiz:attempt:" + key
}
