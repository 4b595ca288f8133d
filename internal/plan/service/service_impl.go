package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/cache"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  plandomain.Repository
	Cache cache.PlanCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  plandomain.Repository
	cache cache.PlanCache
}

func NewService(p Params) plandomain.Service {
	planCache := p.Cache
	if planCache == nil {
		planCache = cache.NewPlanCache(p.Clock)
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cache: planCache,
	}
}

func (s *Service) ListActivePlans(ctx context.Context) ([]plandomain.Plan, error) {
	return s.repo.ListActive(ctx, s.db)
}

func (s *Service) GetPlanByName(ctx context.Context, name string) (*plandomain.Plan, error) {
	key := plandomain.NormalizeName(name)
	if key == "" {
		return nil, plandomain.ErrInvalidPlanName
	}

	if plan, ok := s.cache.GetPlan(key); ok {
		return &plan, nil
	}

	plan, err := s.repo.FindActiveByName(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}

	s.cache.SetPlan(*plan)
	return plan, nil
}

func (s *Service) Invalidate(name string) {
	s.cache.Invalidate(name)
}

// Reseed replaces the catalog in one transaction. Entities reference plans by
// name, so existing subscriptions survive the swap.
func (s *Service) Reseed(ctx context.Context, defs []plandomain.Definition) ([]plandomain.Plan, error) {
	if len(defs) == 0 {
		return nil, plandomain.ErrEmptyCatalog
	}

	now := s.clock.Now()
	seen := make(map[string]struct{}, len(defs))
	plans := make([]plandomain.Plan, 0, len(defs))
	for _, def := range defs {
		plan, ok := plandomain.Canonicalize(def)
		if !ok {
			return nil, fmt.Errorf("%w: %q", plandomain.ErrInvalidPlanName, def.Name)
		}
		if _, dup := seen[plan.Name]; dup {
			continue
		}
		seen[plan.Name] = struct{}{}

		plan.ID = s.genID.Generate()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		plans = append(plans, plan)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteAll(ctx, tx); err != nil {
			return err
		}
		for i := range plans {
			if err := s.repo.Insert(ctx, tx, &plans[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateAll()
	s.log.Info("plan catalog reseeded", zap.Int("plans", len(plans)))
	return plans, nil
}

func (s *Service) SetActive(ctx context.Context, name string, active bool) error {
	key := plandomain.NormalizeName(name)
	if !plandomain.IsKnownName(key) {
		return plandomain.ErrInvalidPlanName
	}

	updated, err := s.repo.SetActive(ctx, s.db, key, active)
	if err != nil {
		return err
	}
	s.cache.Invalidate(key)
	if !updated {
		return plandomain.ErrPlanNotFound
	}
	return nil
}

func (s *Service) Compare(ctx context.Context, currentPlan string) ([]plandomain.Comparison, error) {
	plans, err := s.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}

	current := plandomain.NormalizeName(currentPlan)
	if current == "" {
		current = plandomain.PlanFree
	}
	var currentPrice int64
	for _, plan := range plans {
		if plan.Name == current {
			currentPrice = plan.Price
			break
		}
	}

	out := make([]plandomain.Comparison, 0, len(plans))
	for _, plan := range plans {
		flags := make([]plandomain.FeatureFlag, 0, len(plandomain.FeatureOrder))
		for _, key := range plandomain.FeatureOrder {
			flags = append(flags, plandomain.FeatureFlag{Name: key, Enabled: plan.HasFeature(key)})
		}
		out = append(out, plandomain.Comparison{
			Plan:      plan,
			Features:  flags,
			IsCurrent: plan.Name == current,
			IsUpgrade: plan.Price > currentPrice,
		})
	}
	return out, nil
}
