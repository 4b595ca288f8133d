package cache

import (
	"strings"
	"time"

	"github.com/smallbiznis/invoicepadi/internal/clock"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
)

const defaultPlanTTL = 5 * time.Minute

// PlanCache stores active plans keyed by normalized name.
type PlanCache interface {
	GetPlan(name string) (plandomain.Plan, bool)
	SetPlan(plan plandomain.Plan)
	Invalidate(name string)
	InvalidateAll()
}

type planCache struct {
	plans Cache[string, plandomain.Plan]
	ttl   time.Duration
}

// NewPlanCache returns an in-memory plan cache with the default TTL.
func NewPlanCache(clk clock.Clock) PlanCache {
	return NewPlanCacheWithTTL(clk, defaultPlanTTL)
}

func NewPlanCacheWithTTL(clk clock.Clock, ttl time.Duration) PlanCache {
	return &planCache{
		plans: NewTTLCache[string, plandomain.Plan](clk),
		ttl:   ttl,
	}
}

func (c *planCache) GetPlan(name string) (plandomain.Plan, bool) {
	return c.plans.Get(cacheKey(name))
}

func (c *planCache) SetPlan(plan plandomain.Plan) {
	if plan.ID == 0 {
		return
	}
	c.plans.Set(cacheKey(plan.Name), plan, c.ttl)
}

func (c *planCache) Invalidate(name string) {
	c.plans.Delete(cacheKey(name))
}

func (c *planCache) InvalidateAll() {
	c.plans.Purge()
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
