package ratelimit

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "invoicepadi:lock:"

// The holder token is compared before delete so a replica whose lease ran
// out cannot free the lease a newer holder took.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrInvalidLock       = errors.New("invalid_lock")
)

// Locker hands out expiring leases on redis keys. Scheduler replicas use it
// so one sweep of each job runs per interval.
type Locker struct {
	client *redis.Client
	script *redis.Script
	holder string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	holder, err := os.Hostname()
	if err != nil || holder == "" {
		holder = "replica"
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		holder: holder,
	}
}

// TryLock takes the lease on key for ttl. ok is false when another holder
// has it; the returned token identifies this holder to Release.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	if l == nil || l.client == nil {
		return "", false, ErrLockNotConfigured
	}
	if key == "" || ttl <= 0 {
		return "", false, ErrInvalidLock
	}

	token = l.holder + "/" + uuid.NewString()
	ok, err = l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Holder reports who holds key, or "" when the lease is free.
func (l *Locker) Holder(ctx context.Context, key string) (string, error) {
	if l == nil || l.client == nil {
		return "", ErrLockNotConfigured
	}
	token, err := l.client.Get(ctx, lockKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Err()
}
