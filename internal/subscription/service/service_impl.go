package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	"github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reasonInitialize = "initialize"
	reasonUpgrade    = "upgrade"
	reasonDowngrade  = "downgrade"
	reasonRenewal    = "renewal"
	reasonExpired    = "expired"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	EntityRepo   entitydomain.Repository
	Plans        plandomain.Service
	Entitlements entitlementdomain.Service
	Cards        carddomain.Service
	Ledger       paymentdomain.Ledger
	Gateway      paystack.Client
	Billing      *config.BillingConfigHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock        clock.Clock
	entityRepo   entitydomain.Repository
	plans        plandomain.Service
	entitlements entitlementdomain.Service
	cards        carddomain.Service
	ledger       paymentdomain.Ledger
	gateway      paystack.Client
	billing      *config.BillingConfigHolder
	metrics      *metrics.Metrics
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		clock:        p.Clock,
		entityRepo:   p.EntityRepo,
		plans:        p.Plans,
		entitlements: p.Entitlements,
		cards:        p.Cards,
		ledger:       p.Ledger,
		gateway:      p.Gateway,
		billing:      p.Billing,
		metrics:      p.Metrics,
	}
}

func (s *Service) Initialize(ctx context.Context, entityID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	free, err := s.plans.GetPlanByName(ctx, plandomain.PlanFree)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	assigned, err := s.entityRepo.InitializeSubscription(ctx, s.db, entityID, entitydomain.Subscription{
		Plan:      free.Name,
		Status:    entitydomain.StatusActive,
		StartDate: &now,
	}, now)
	if err != nil {
		return nil, err
	}

	entity, err := s.entityRepo.FindByID(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}
	if assigned {
		s.metrics.RecordSubscriptionChange(ctx, free.Name, reasonInitialize)
		s.log.Info("subscription initialized", zap.String("entity_id", entityID.String()))
	}
	return fromEntity(entity), nil
}

func (s *Service) Current(ctx context.Context, entityID snowflake.ID) (*subscriptiondomain.Current, error) {
	snapshot, err := s.entitlements.Snapshot(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return &subscriptiondomain.Current{
		Snapshot: *snapshot,
		UsagePercent: subscriptiondomain.UsagePercent{
			Invoices:    snapshot.UsagePercent(entitlementdomain.ResourceInvoice),
			Customers:   snapshot.UsagePercent(entitlementdomain.ResourceCustomer),
			TeamMembers: snapshot.UsagePercent(entitlementdomain.ResourceTeamMember),
		},
	}, nil
}

func (s *Service) Compare(ctx context.Context, entityID snowflake.ID) ([]plandomain.Comparison, error) {
	snapshot, err := s.entitlements.Snapshot(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return s.plans.Compare(ctx, snapshot.Plan.Name)
}

func (s *Service) Upgrade(ctx context.Context, entityID snowflake.ID, planName string) (*subscriptiondomain.Subscription, error) {
	plan, err := s.plans.GetPlanByName(ctx, planName)
	if err != nil {
		return nil, err
	}

	var sub *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.applyPlan(ctx, tx, entityID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionChange(ctx, plan.Name, reasonUpgrade)
	s.log.Info("subscription upgraded",
		zap.String("entity_id", entityID.String()),
		zap.String("plan", plan.Name),
	)
	return sub, nil
}

func (s *Service) Downgrade(ctx context.Context, entityID snowflake.ID, planName string) (*subscriptiondomain.Subscription, error) {
	plan, err := s.plans.GetPlanByName(ctx, planName)
	if err != nil {
		return nil, err
	}

	var sub *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.entityRepo.LockByID(ctx, tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return entitydomain.ErrEntityNotFound
		}

		// A paid plan is only reachable through a charge; the target must
		// cost less than the current plan.
		if !plan.IsFree() {
			current, err := s.plans.GetPlanByName(ctx, currentPlanName(entity))
			if err != nil {
				return err
			}
			if plan.Price >= current.Price {
				return subscriptiondomain.ErrNotADowngrade
			}
		}

		if conflicts := usageConflicts(entity, plan); len(conflicts) > 0 {
			return &subscriptiondomain.DowngradeBlockedError{Plan: plan.Name, Conflicts: conflicts}
		}

		sub, err = s.applyPlan(ctx, tx, entityID, plan)
		return err
	})
	if err != nil {
		var blocked *subscriptiondomain.DowngradeBlockedError
		if errors.As(err, &blocked) {
			s.log.Info("downgrade blocked by usage",
				zap.String("entity_id", entityID.String()),
				zap.String("plan", plan.Name),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.metrics.RecordSubscriptionChange(ctx, plan.Name, reasonDowngrade)
	s.log.Info("subscription downgraded",
		zap.String("entity_id", entityID.String()),
		zap.String("plan", plan.Name),
	)
	return sub, nil
}

func (s *Service) UpgradeWithPayment(ctx context.Context, req subscriptiondomain.PaidUpgradeRequest) (*subscriptiondomain.PaidResult, error) {
	plan, err := s.plans.GetPlanByName(ctx, req.PlanName)
	if err != nil {
		return nil, err
	}

	if plan.IsFree() {
		sub, err := s.Upgrade(ctx, req.EntityID, plan.Name)
		if err != nil {
			return nil, err
		}
		return &subscriptiondomain.PaidResult{
			Success:      true,
			Message:      subscriptiondomain.MessageFreeUpgrade,
			Subscription: sub,
			Payment:      &subscriptiondomain.PaymentSummary{Amount: decimal.Zero, Currency: plan.Currency},
		}, nil
	}

	return s.chargeAndApply(ctx, paidChange{
		entityID:    req.EntityID,
		plan:        plan,
		email:       req.Email,
		cardID:      req.CardID,
		description: fmt.Sprintf("Subscription upgrade to %s plan", plan.DisplayName),
		reason:      reasonUpgrade,
		message:     subscriptiondomain.MessageUpgraded,
	})
}

func (s *Service) Renew(ctx context.Context, req subscriptiondomain.RenewRequest) (*subscriptiondomain.PaidResult, error) {
	entity, err := s.entityRepo.FindByID(ctx, s.db, req.EntityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}

	// An active subscription is not renewable before it lapses, unless the
	// caller is a renewal batch and the expiry falls inside its window.
	now := s.clock.Now()
	cutoff := now
	if req.WithinDays > 0 {
		cutoff = now.AddDate(0, 0, req.WithinDays)
	}
	if entity.SubscriptionStatus == entitydomain.StatusActive &&
		entity.SubscriptionExpiry != nil && entity.SubscriptionExpiry.After(cutoff) {
		return &subscriptiondomain.PaidResult{
			Success: false,
			Message: fmt.Sprintf(subscriptiondomain.MessageStillActiveAt, entity.SubscriptionExpiry.Format("2006-01-02")),
		}, nil
	}

	plan, err := s.plans.GetPlanByName(ctx, currentPlanName(entity))
	if err != nil {
		return nil, err
	}

	if plan.IsFree() {
		var sub *subscriptiondomain.Subscription
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			sub, err = s.applyPlan(ctx, tx, req.EntityID, plan)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.metrics.RecordSubscriptionChange(ctx, plan.Name, reasonRenewal)
		return &subscriptiondomain.PaidResult{
			Success:      true,
			Message:      subscriptiondomain.MessageFreeRenewal,
			Subscription: sub,
			Payment:      &subscriptiondomain.PaymentSummary{Amount: decimal.Zero, Currency: plan.Currency},
		}, nil
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = entity.Email
	}
	return s.chargeAndApply(ctx, paidChange{
		entityID:    req.EntityID,
		plan:        plan,
		email:       email,
		cardID:      req.CardID,
		description: fmt.Sprintf("Subscription renewal for %s plan", plan.DisplayName),
		reason:      reasonRenewal,
		message:     subscriptiondomain.MessageRenewed,
	})
}

type paidChange struct {
	entityID    snowflake.ID
	plan        *plandomain.Plan
	email       string
	cardID      *snowflake.ID
	description string
	reason      string
	message     string
}

// chargeAndApply records the intent as a PENDING transaction, charges the
// card and commits the plan change together with the SUCCESS transition.
// Unknown charge outcomes stay PENDING for the recovery sweep.
func (s *Service) chargeAndApply(ctx context.Context, change paidChange) (*subscriptiondomain.PaidResult, error) {
	if strings.TrimSpace(change.email) == "" {
		return nil, subscriptiondomain.ErrInvalidEmail
	}

	amount := decimal.NewFromInt(change.plan.Price)
	reference := paymentdomain.EntityReference(paymentdomain.PrefixCharge, change.entityID.String(), s.clock.Now())
	metadata := paymentdomain.NewSubscriptionUpgrade(change.entityID.String(), change.plan.Name)

	intent, err := s.ledger.CreatePending(ctx, nil, paymentdomain.CreatePendingRequest{
		EntityID:    change.entityID,
		Amount:      amount,
		Currency:    change.plan.Currency,
		Reference:   reference,
		Description: change.description,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.cards.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{
		EntityID:    change.entityID,
		CardID:      change.cardID,
		Amount:      amount,
		Email:       change.email,
		Description: change.description,
		Reference:   reference,
		Metadata:    metadata.Map(),
	})
	if err != nil {
		if errors.Is(err, paystack.ErrUpstreamUnavailable) {
			s.log.Warn("subscription charge outcome unknown, intent left pending",
				zap.String("entity_id", change.entityID.String()),
				zap.String("reference", reference),
				zap.Error(err),
			)
			return nil, err
		}
		s.markFailed(ctx, intent.ID, reference, err.Error())
		return nil, err
	}

	payment := &subscriptiondomain.PaymentSummary{
		Reference: reference,
		Amount:    amount,
		Currency:  change.plan.Currency,
		Status:    charge.Status,
		PaidAt:    charge.PaidAt,
		Card:      charge.Card,
	}

	if !charge.Success {
		message := charge.Message
		if message == "" {
			message = subscriptiondomain.MessageChargeFailed
		}
		s.markFailed(ctx, intent.ID, reference, message)
		payment.Status = string(paymentdomain.StatusFailed)
		s.log.Info("subscription charge declined",
			zap.String("entity_id", change.entityID.String()),
			zap.String("plan", change.plan.Name),
			zap.String("reference", reference),
			zap.String("message", message),
		)
		return &subscriptiondomain.PaidResult{Success: false, Message: message, Payment: payment}, nil
	}

	completion, err := s.complete(ctx, reference, change.plan)
	if err != nil {
		s.log.Error("charge succeeded but subscription was not updated",
			zap.String("entity_id", change.entityID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordSubscriptionChange(ctx, change.plan.Name, change.reason)
	s.log.Info("paid subscription change applied",
		zap.String("entity_id", change.entityID.String()),
		zap.String("plan", change.plan.Name),
		zap.String("reason", change.reason),
		zap.String("reference", reference),
	)
	return &subscriptiondomain.PaidResult{
		Success:      true,
		Message:      change.message,
		Subscription: completion.Subscription,
		Payment:      payment,
	}, nil
}

func (s *Service) CompletePaidUpgrade(ctx context.Context, reference string) (*subscriptiondomain.Completion, error) {
	intent, err := s.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if intent.Purpose != paymentdomain.PurposeSubscriptionUpgrade {
		return nil, subscriptiondomain.ErrIntentMismatch
	}
	if intent.Status == paymentdomain.StatusSuccess {
		return &subscriptiondomain.Completion{Applied: false}, nil
	}

	metadata, err := paymentdomain.DecodeMetadata(intent.Metadata)
	if err != nil {
		return nil, err
	}
	if metadata.Subscription == nil {
		return nil, subscriptiondomain.ErrIntentMismatch
	}

	plan, err := s.plans.GetPlanByName(ctx, metadata.Subscription.PlanName)
	if err != nil {
		return nil, err
	}

	completion, err := s.complete(ctx, reference, plan)
	if err != nil {
		return nil, err
	}
	if completion.Applied {
		s.metrics.RecordSubscriptionChange(ctx, plan.Name, reasonUpgrade)
		s.log.Info("paid upgrade completed from confirmation",
			zap.String("entity_id", intent.EntityID.String()),
			zap.String("plan", plan.Name),
			zap.String("reference", reference),
		)
	}
	return completion, nil
}

// complete marks the intent SUCCESS and applies plan in one transaction.
func (s *Service) complete(ctx context.Context, reference string, plan *plandomain.Plan) (*subscriptiondomain.Completion, error) {
	completion := &subscriptiondomain.Completion{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		intent, err := s.ledger.LockByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if intent.Status != paymentdomain.StatusPending {
			if intent.Status != paymentdomain.StatusSuccess {
				s.log.Warn("confirmed charge on a closed intent",
					zap.String("reference", reference),
					zap.String("status", string(intent.Status)),
				)
			}
			return nil
		}

		marked, err := s.ledger.MarkSuccess(ctx, tx, intent.ID)
		if err != nil {
			return err
		}
		if !marked {
			return nil
		}

		sub, err := s.applyPlan(ctx, tx, intent.EntityID, plan)
		if err != nil {
			return err
		}
		completion.Applied = true
		completion.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// RecoverPendingIntents verifies stale PENDING upgrade charges with the
// gateway. The scheduler's redis lease keeps runs from overlapping. A
// webhook can still settle an intent between the listing and the verify;
// complete and markFailed only move PENDING rows, so such an intent is
// counted as settled and never applied twice.
func (s *Service) RecoverPendingIntents(ctx context.Context, limit int) (*subscriptiondomain.RecoveryResult, error) {
	if limit <= 0 {
		limit = 50
	}

	claimed, err := s.ledger.ListStalePending(ctx, paymentdomain.PurposeSubscriptionUpgrade, s.billing.Get().IntentStaleAfter, limit)
	if err != nil {
		return nil, err
	}

	result := &subscriptiondomain.RecoveryResult{Claimed: len(claimed)}
	for _, intent := range claimed {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		verified, err := s.gateway.VerifyTransaction(ctx, intent.Reference)
		if err != nil {
			var apiErr *paystack.APIError
			if errors.As(err, &apiErr) {
				s.markFailed(ctx, intent.ID, intent.Reference, apiErr.Message)
				result.Failed++
				continue
			}
			s.log.Warn("intent verification unavailable",
				zap.String("reference", intent.Reference),
				zap.Error(err),
			)
			result.Pending++
			continue
		}

		switch {
		case verified.Succeeded():
			completion, err := s.CompletePaidUpgrade(ctx, intent.Reference)
			if err != nil {
				s.log.Error("failed to complete recovered intent",
					zap.String("reference", intent.Reference),
					zap.Error(err),
				)
				result.Pending++
				continue
			}
			if !completion.Applied {
				result.Settled++
				continue
			}
			result.Completed++
		case verified.Definitive():
			s.markFailed(ctx, intent.ID, intent.Reference, verified.GatewayResponse)
			result.Failed++
		default:
			result.Pending++
		}
	}

	if result.Claimed > 0 {
		s.log.Info("pending intents reconciled",
			zap.Int("claimed", result.Claimed),
			zap.Int("completed", result.Completed),
			zap.Int("failed", result.Failed),
			zap.Int("pending", result.Pending),
		)
	}
	return result, nil
}

func (s *Service) GetSubscriptionsNeedingRenewal(ctx context.Context, daysAhead int) ([]subscriptiondomain.RenewalCandidate, error) {
	if daysAhead <= 0 {
		daysAhead = s.billing.Get().RenewalDaysAhead
	}

	now := s.clock.Now()
	entities, err := s.entityRepo.ListRenewalDue(ctx, s.db, now, now.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, err
	}

	candidates := make([]subscriptiondomain.RenewalCandidate, 0, len(entities))
	for _, entity := range entities {
		if entity.SubscriptionExpiry == nil {
			continue
		}
		candidates = append(candidates, subscriptiondomain.RenewalCandidate{
			EntityID: entity.ID,
			Name:     entity.Name,
			Email:    entity.Email,
			Plan:     entity.SubscriptionPlan,
			Expiry:   *entity.SubscriptionExpiry,
		})
	}
	return candidates, nil
}

func (s *Service) ProcessAutomaticRenewals(ctx context.Context, daysAhead int) (*subscriptiondomain.RenewalBatch, error) {
	if daysAhead <= 0 {
		daysAhead = s.billing.Get().RenewalDaysAhead
	}
	candidates, err := s.GetSubscriptionsNeedingRenewal(ctx, daysAhead)
	if err != nil {
		return nil, err
	}

	batch := &subscriptiondomain.RenewalBatch{Failures: []subscriptiondomain.RenewalFailure{}}
	for _, candidate := range candidates {
		batch.Processed++

		result, err := s.Renew(ctx, subscriptiondomain.RenewRequest{
			EntityID:   candidate.EntityID,
			Email:      candidate.Email,
			WithinDays: daysAhead,
		})
		switch {
		case err != nil:
			batch.Failed++
			batch.Failures = append(batch.Failures, subscriptiondomain.RenewalFailure{
				EntityID: candidate.EntityID,
				Email:    candidate.Email,
				Error:    err.Error(),
			})
		case !result.Success:
			batch.Failed++
			batch.Failures = append(batch.Failures, subscriptiondomain.RenewalFailure{
				EntityID: candidate.EntityID,
				Email:    candidate.Email,
				Error:    result.Message,
			})
		default:
			batch.Successful++
		}
	}

	s.log.Info("automatic renewals processed",
		zap.Int("processed", batch.Processed),
		zap.Int("successful", batch.Successful),
		zap.Int("failed", batch.Failed),
	)
	return batch, nil
}

func (s *Service) CheckAndUpdateSubscriptionStatus(ctx context.Context, entityID snowflake.ID) (bool, error) {
	expired, err := s.entityRepo.ExpireIfLapsed(ctx, s.db, entityID, plandomain.PlanFree, s.clock.Now())
	if err != nil {
		return false, err
	}
	if expired {
		s.metrics.RecordSubscriptionChange(ctx, plandomain.PlanFree, reasonExpired)
		s.log.Info("subscription expired, moved to free plan", zap.String("entity_id", entityID.String()))
	}
	return expired, nil
}

func (s *Service) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}

	entities, err := s.entityRepo.ListLapsed(ctx, s.db, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, entity := range entities {
		ok, err := s.CheckAndUpdateSubscriptionStatus(ctx, entity.ID)
		if err != nil {
			s.log.Error("failed to expire subscription",
				zap.String("entity_id", entity.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) CanAccessFeature(ctx context.Context, entityID snowflake.ID, featureKey string) (bool, error) {
	snapshot, err := s.entitlements.Snapshot(ctx, entityID)
	if err != nil {
		return false, err
	}
	return snapshot.Plan.HasFeature(strings.TrimSpace(featureKey)), nil
}

// applyPlan sets plan and status active. Buying the plan the entity is
// already active on extends the current period instead of restarting it.
func (s *Service) applyPlan(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, plan *plandomain.Plan) (*subscriptiondomain.Subscription, error) {
	entity, err := s.entityRepo.LockByID(ctx, tx, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}

	now := s.clock.Now()
	start, from := now, now
	if entity.SubscriptionPlan == plan.Name &&
		entity.SubscriptionStatus == entitydomain.StatusActive &&
		entity.SubscriptionExpiry != nil && entity.SubscriptionExpiry.After(now) {
		from = *entity.SubscriptionExpiry
		if entity.SubscriptionStartDate != nil {
			start = *entity.SubscriptionStartDate
		}
	}
	expiry := from.AddDate(0, 0, subscriptiondomain.DurationDays)

	updated, err := s.entityRepo.UpdateSubscription(ctx, tx, entityID, entitydomain.Subscription{
		Plan:      plan.Name,
		Status:    entitydomain.StatusActive,
		StartDate: &start,
		Expiry:    &expiry,
	}, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, entitydomain.ErrEntityNotFound
	}

	return &subscriptiondomain.Subscription{
		EntityID:  entityID,
		Plan:      plan.Name,
		Status:    entitydomain.StatusActive,
		StartDate: &start,
		Expiry:    &expiry,
	}, nil
}

func (s *Service) markFailed(ctx context.Context, id snowflake.ID, reference, reason string) {
	if _, err := s.ledger.MarkFailed(ctx, nil, id, reason); err != nil {
		s.log.Error("failed to mark intent failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
}

func usageConflicts(entity *entitydomain.Entity, plan *plandomain.Plan) []subscriptiondomain.UsageConflict {
	checks := []struct {
		resource entitlementdomain.Resource
		current  int64
		limit    int64
	}{
		{entitlementdomain.ResourceInvoice, entity.InvoicesCreated, plan.MaxInvoices},
		{entitlementdomain.ResourceCustomer, entity.CustomersCreated, plan.MaxCustomers},
	}

	var conflicts []subscriptiondomain.UsageConflict
	for _, c := range checks {
		if c.limit == plandomain.Unlimited || c.current <= c.limit {
			continue
		}
		conflicts = append(conflicts, subscriptiondomain.UsageConflict{
			Resource: c.resource,
			Current:  c.current,
			Limit:    c.limit,
		})
	}
	return conflicts
}

// currentPlanName treats an unassigned plan as free.
func currentPlanName(entity *entitydomain.Entity) string {
	if entity.SubscriptionPlan == "" {
		return plandomain.PlanFree
	}
	return entity.SubscriptionPlan
}

func fromEntity(entity *entitydomain.Entity) *subscriptiondomain.Subscription {
	return &subscriptiondomain.Subscription{
		EntityID:  entity.ID,
		Plan:      entity.SubscriptionPlan,
		Status:    entity.SubscriptionStatus,
		StartDate: entity.SubscriptionStartDate,
		Expiry:    entity.SubscriptionExpiry,
	}
}
