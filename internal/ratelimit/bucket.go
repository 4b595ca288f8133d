package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket from the redis clock, spends one token if it
// can and reports how long the caller must wait for the next one.
// Reply: {allowed, whole tokens left, retry after in ms}.
const takeScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + ((now - ts) / 1000) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil(((1 - tokens) / rate) * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`

var (
	ErrBucketNotConfigured = errors.New("rate limit bucket not configured")
	errEmptyKey            = errors.New("rate limit key is empty")
)

// Quota is a refill rate in tokens per second and the bucket capacity.
type Quota struct {
	Rate  float64
	Burst int
}

func (q Quota) validate() error {
	if q.Rate <= 0 || math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0) {
		return fmt.Errorf("rate limit rate must be positive, got %v", q.Rate)
	}
	if q.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive, got %d", q.Burst)
	}
	return nil
}

// idleTTL keeps a bucket around for twice the time a full refill takes.
func (q Quota) idleTTL() time.Duration {
	if q.Rate <= 0 || q.Burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil(float64(q.Burst) / q.Rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// taker is the storage side of the limiter.
type taker interface {
	Take(ctx context.Context, key string, q Quota) (Decision, error)
}

// Bucket is a token bucket kept in a redis hash per key.
type Bucket struct {
	client *redis.Client
	script *redis.Script
}

func NewBucket(client *redis.Client) *Bucket {
	if client == nil {
		return nil
	}
	return &Bucket{client: client, script: redis.NewScript(takeScript)}
}

func (b *Bucket) Take(ctx context.Context, key string, q Quota) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, ErrBucketNotConfigured
	}
	if key == "" {
		return Decision{}, errEmptyKey
	}
	if err := q.validate(); err != nil {
		return Decision{}, err
	}

	reply, err := b.script.Run(ctx, b.client, []string{key},
		q.Rate, q.Burst, q.idleTTL().Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("take token %s: %w", key, err)
	}
	return decisionFromReply(reply, q)
}

func decisionFromReply(reply []int64, q Quota) (Decision, error) {
	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply of length %d", len(reply))
	}
	d := Decision{
		Allowed:   reply[0] == 1,
		Limit:     q.Burst,
		Remaining: int(reply[1]),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(reply[2]) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}
