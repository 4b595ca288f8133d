package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicepadi/internal/config"
	"github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	EndpointAuth    = "auth"
	EndpointWebhook = "webhook"
	EndpointPayment = "payment"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Client  *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// Limiter guards the unauthenticated endpoints per client address or
// gateway, and the charge endpoints per entity. A nil or disabled limiter
// allows everything, and so does a redis failure.
type Limiter struct {
	bucket  taker
	log     *zap.Logger
	metrics *metrics.Metrics
	quotas  map[string]Quota
}

func NewLimiter(p Params) *Limiter {
	cfg := p.Cfg.RateLimit
	if !cfg.Enabled || p.Client == nil {
		return nil
	}
	return newLimiter(NewBucket(p.Client), p.Log, p.Metrics, cfg)
}

func newLimiter(bucket taker, log *zap.Logger, m *metrics.Metrics, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		bucket:  bucket,
		log:     log.Named("ratelimit"),
		metrics: m,
		quotas: map[string]Quota{
			EndpointAuth:    {Rate: cfg.AuthRate, Burst: cfg.AuthBurst},
			EndpointWebhook: {Rate: cfg.WebhookRate, Burst: cfg.WebhookBurst},
			EndpointPayment: {Rate: cfg.PaymentRate, Burst: cfg.PaymentBurst},
		},
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowAuth limits login and registration attempts per client address.
func (l *Limiter) AllowAuth(ctx context.Context, clientIP string) Decision {
	return l.allow(ctx, EndpointAuth, clientKey(clientIP))
}

// AllowWebhook limits gateway deliveries per provider.
func (l *Limiter) AllowWebhook(ctx context.Context, provider string) Decision {
	return l.allow(ctx, EndpointWebhook, providerKey(provider))
}

// AllowPayment limits charge and checkout initiation per entity so one
// account cannot hammer the gateway.
func (l *Limiter) AllowPayment(ctx context.Context, entityID snowflake.ID) Decision {
	return l.allow(ctx, EndpointPayment, entityKey(entityID))
}

func clientKey(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return "ratelimit:auth:ip:" + ip
}

func providerKey(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "unknown"
	}
	return "ratelimit:webhook:provider:" + provider
}

func entityKey(id snowflake.ID) string {
	return fmt.Sprintf("ratelimit:payment:entity:%d", id.Int64())
}

func (l *Limiter) allow(ctx context.Context, endpoint, key string) Decision {
	if !l.Enabled() {
		return Decision{Allowed: true}
	}
	d, err := l.bucket.Take(ctx, key, l.quotas[endpoint])
	if err != nil {
		l.log.Warn("rate limit check failed; allowing request",
			zap.String("endpoint", endpoint),
			zap.String("key", key),
			zap.Error(err),
		)
		l.metrics.RecordRateLimitAllowed(ctx, endpoint)
		return Decision{Allowed: true}
	}
	if d.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, endpoint)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, endpoint, "bucket_empty")
	}
	return d
}
