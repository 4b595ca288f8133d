package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicepadi/internal/auth/domain"
	obscontext "github.com/smallbiznis/invoicepadi/internal/observability/context"
	obslogger "github.com/smallbiznis/invoicepadi/internal/observability/logger"
	"github.com/smallbiznis/invoicepadi/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	contextEntityIDKey = "entity_id"
	contextEmailKey    = "entity_email"
)

// AuthRequired resolves the bearer token into the calling entity.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.authSvc.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authdomain.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithEntityID(ctx, principal.EntityID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextEntityIDKey, principal.EntityID)
		c.Set(contextEmailKey, principal.Email)
		c.Next()
	}
}

// SubscriptionStatus moves a lapsed paid entity to the free plan before any
// handler or feature gate reads its entitlements.
func (s *Server) SubscriptionStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID, ok := entityIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		expired, err := s.subscriptionSvc.CheckAndUpdateSubscriptionStatus(c.Request.Context(), entityID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if expired {
			obslogger.WithContext(c.Request.Context(), s.log).Info("subscription expired on request")
		}
		c.Next()
	}
}

func (s *Server) RequireFeature(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID, ok := entityIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, err := s.subscriptionSvc.CanAccessFeature(c.Request.Context(), entityID, key)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, ErrFeatureNotAvailable)
			return
		}
		c.Next()
	}
}

// RateLimit applies the redis token bucket for endpoint. Auth is keyed by
// client address, webhooks by provider and payments by the authenticated
// entity. Requests pass through when the limiter is not configured.
func (s *Server) RateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		var decision ratelimit.Decision
		switch endpoint {
		case ratelimit.EndpointWebhook:
			decision = s.limiter.AllowWebhook(ctx, c.Param("provider"))
		case ratelimit.EndpointPayment:
			entityID, ok := entityIDFromContext(c)
			if !ok {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			decision = s.limiter.AllowPayment(ctx, entityID)
		default:
			decision = s.limiter.AllowAuth(ctx, c.ClientIP())
		}

		if !writeRateLimitHeaders(c, decision) {
			obslogger.WithContext(ctx, s.log).Warn("rate limit exceeded",
				zap.String("endpoint", endpoint),
				zap.String("client_ip", c.ClientIP()),
				zap.Duration("retry_after", decision.RetryAfter),
			)
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// writeRateLimitHeaders reports the bucket state and, on denial, a
// Retry-After rounded up to whole seconds. It returns decision.Allowed.
func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) bool {
	if decision.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if decision.Allowed {
		return true
	}
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	return false
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func entityIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	raw, ok := c.Get(contextEntityIDKey)
	if !ok {
		return 0, false
	}
	id, ok := raw.(snowflake.ID)
	return id, ok && id > 0
}

func principalEmail(c *gin.Context) string {
	if principal, ok := authdomain.PrincipalFromContext(c.Request.Context()); ok {
		return principal.Email
	}
	return c.GetString(contextEmailKey)
}
