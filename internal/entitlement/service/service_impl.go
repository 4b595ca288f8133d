package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	"github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       entitlementdomain.Repository
	EntityRepo entitydomain.Repository
	Plans      plandomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       entitlementdomain.Repository
	entityRepo entitydomain.Repository
	plans      plandomain.Service
	metrics    *metrics.Metrics
}

func NewService(p Params) entitlementdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("entitlement.service"),
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		plans:      p.Plans,
		metrics:    p.Metrics,
	}
}

func (s *Service) Snapshot(ctx context.Context, entityID snowflake.ID) (*entitlementdomain.Snapshot, error) {
	snapshot, err := s.load(ctx, s.db, entityID)
	if errors.Is(err, plandomain.ErrPlanNotFound) {
		return s.fallbackToFree(ctx, entityID)
	}
	return snapshot, err
}

func (s *Service) SnapshotTx(ctx context.Context, tx *gorm.DB, entityID snowflake.ID) (*entitlementdomain.Snapshot, error) {
	return s.load(ctx, tx, entityID)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*entitlementdomain.Snapshot, error) {
	if entityID <= 0 {
		return nil, entitydomain.ErrInvalidEntityID
	}

	row, err := s.repo.LoadSnapshot(ctx, db, entityID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, entitydomain.ErrEntityNotFound
	}
	if !row.HasPlan() {
		return nil, plandomain.ErrPlanNotFound
	}

	plan := row.ToPlan()
	return &entitlementdomain.Snapshot{
		EntityID:     row.ID,
		Email:        row.Email,
		Plan:         plan,
		PlanAssigned: strings.TrimSpace(row.SubscriptionPlan) != "",
		Status:       entitydomain.SubscriptionStatus(row.SubscriptionStatus),
		StartDate:    row.SubscriptionStartDate,
		Expiry:       row.SubscriptionExpiry,
		Usage: entitlementdomain.Usage{
			InvoicesCreated:  row.InvoicesCreated,
			CustomersCreated: row.CustomersCreated,
			TeamMembersCount: row.TeamMembersCount,
		},
		Limits: entitlementdomain.LimitsOf(plan),
	}, nil
}

// fallbackToFree covers an entity whose stored plan was deactivated.
func (s *Service) fallbackToFree(ctx context.Context, entityID snowflake.ID) (*entitlementdomain.Snapshot, error) {
	entity, err := s.entityRepo.FindByID(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}

	free, err := s.plans.GetPlanByName(ctx, plandomain.PlanFree)
	if err != nil {
		return nil, err
	}

	s.log.Warn("entity plan is not active, applying free plan limits",
		zap.String("entity_id", entityID.String()),
		zap.String("plan", entity.SubscriptionPlan),
	)

	return &entitlementdomain.Snapshot{
		EntityID:     entity.ID,
		Email:        entity.Email,
		Plan:         *free,
		PlanAssigned: entity.SubscriptionPlan != "",
		Status:       entity.SubscriptionStatus,
		StartDate:    entity.SubscriptionStartDate,
		Expiry:       entity.SubscriptionExpiry,
		Usage: entitlementdomain.Usage{
			InvoicesCreated:  entity.InvoicesCreated,
			CustomersCreated: entity.CustomersCreated,
			TeamMembersCount: entity.TeamMembersCount,
		},
		Limits: entitlementdomain.LimitsOf(*free),
	}, nil
}

func (s *Service) CanCreate(ctx context.Context, entityID snowflake.ID, resource entitlementdomain.Resource) (bool, error) {
	if !resource.Gated() {
		return false, entitlementdomain.ErrInvalidResource
	}

	snapshot, err := s.Snapshot(ctx, entityID)
	if err != nil {
		return false, err
	}
	return snapshot.Allows(resource, 1), nil
}

func (s *Service) IncrementUsage(ctx context.Context, entityID snowflake.ID, resource entitlementdomain.Resource, amount int64) (*entitlementdomain.Usage, error) {
	if err := validateUpdate(resource, amount); err != nil {
		return nil, err
	}
	if entityID <= 0 {
		return nil, entitydomain.ErrInvalidEntityID
	}

	var counters *entitydomain.Counters
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.entityRepo.IncrementCounter(ctx, tx, entityID, resource.Column(), amount)
		if err != nil {
			return err
		}
		if !updated {
			return entitydomain.ErrEntityNotFound
		}
		counters, err = s.entityRepo.GetCounters(ctx, tx, entityID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return toUsage(counters), nil
}

func (s *Service) BatchIncrementUsage(ctx context.Context, updates []entitlementdomain.UsageUpdate) (*entitlementdomain.BatchResult, error) {
	result := &entitlementdomain.BatchResult{
		Processed: len(updates),
		Errors:    []entitlementdomain.BatchError{},
	}

	type pending struct {
		raw   string
		delta entitydomain.CounterDelta
	}
	valid := make([]pending, 0, len(updates))
	for _, update := range updates {
		id, err := entitydomain.ParseID(strings.TrimSpace(update.EntityID))
		if err == nil {
			err = validateUpdate(update.Resource, update.Amount)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, entitlementdomain.BatchError{EntityID: update.EntityID, Error: err.Error()})
			continue
		}
		valid = append(valid, pending{
			raw:   update.EntityID,
			delta: entitydomain.CounterDelta{EntityID: id, Column: update.Resource.Column(), Amount: update.Amount},
		})
	}

	if len(valid) == 0 {
		return result, nil
	}

	var missing []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		missing = missing[:0]
		for _, item := range valid {
			updated, err := s.entityRepo.IncrementCounter(ctx, tx, item.delta.EntityID, item.delta.Column, item.delta.Amount)
			if err != nil {
				return err
			}
			if !updated {
				missing = append(missing, item.raw)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range missing {
		result.Failed++
		result.Errors = append(result.Errors, entitlementdomain.BatchError{EntityID: id, Error: entitydomain.ErrEntityNotFound.Error()})
	}
	result.Successful = len(valid) - len(missing)

	s.log.Info("batch usage update applied",
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, resource entitlementdomain.Resource, amount int64) error {
	if err := validateUpdate(resource, amount); err != nil {
		return err
	}

	locked, err := s.entityRepo.LockByID(ctx, tx, entityID)
	if err != nil {
		return err
	}
	if locked == nil {
		return entitydomain.ErrEntityNotFound
	}

	snapshot, err := s.load(ctx, tx, entityID)
	if err != nil {
		return err
	}

	limit := snapshot.Limits.For(resource)
	if !resource.Gated() || limit == plandomain.Unlimited {
		_, err := s.entityRepo.IncrementCounter(ctx, tx, entityID, resource.Column(), amount)
		return err
	}

	reserved, err := s.entityRepo.IncrementCounterWithin(ctx, tx, entityID, resource.Column(), amount, limit)
	if err != nil {
		return err
	}
	if !reserved {
		s.metrics.RecordLimitRejection(ctx, snapshot.Plan.Name, string(resource))
		return &entitlementdomain.LimitExceededError{
			Resource: resource,
			Plan:     snapshot.Plan.Name,
			Current:  snapshot.Usage.For(resource),
			Limit:    limit,
		}
	}
	return nil
}

func validateUpdate(resource entitlementdomain.Resource, amount int64) error {
	if !resource.Valid() {
		return entitlementdomain.ErrInvalidResource
	}
	if amount < 0 {
		return entitlementdomain.ErrNegativeAmount
	}
	return nil
}

func toUsage(c *entitydomain.Counters) *entitlementdomain.Usage {
	if c == nil {
		return &entitlementdomain.Usage{}
	}
	return &entitlementdomain.Usage{
		InvoicesCreated:  c.InvoicesCreated,
		CustomersCreated: c.CustomersCreated,
		TeamMembersCount: c.TeamMembersCount,
	}
}
