package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
)

type Service interface {
	// Initialize assigns the free plan once. Entities that already have a
	// plan are returned unchanged.
	Initialize(ctx context.Context, entityID snowflake.ID) (*Subscription, error)
	Current(ctx context.Context, entityID snowflake.ID) (*Current, error)
	Compare(ctx context.Context, entityID snowflake.ID) ([]plandomain.Comparison, error)

	// Upgrade applies a plan without charging. It is not routed over HTTP.
	Upgrade(ctx context.Context, entityID snowflake.ID, planName string) (*Subscription, error)
	UpgradeWithPayment(ctx context.Context, req PaidUpgradeRequest) (*PaidResult, error)
	Downgrade(ctx context.Context, entityID snowflake.ID, planName string) (*Subscription, error)
	Renew(ctx context.Context, req RenewRequest) (*PaidResult, error)

	// CompletePaidUpgrade applies the plan recorded on a confirmed
	// subscription charge. It is a no-op once the charge is SUCCESS.
	CompletePaidUpgrade(ctx context.Context, reference string) (*Completion, error)
	RecoverPendingIntents(ctx context.Context, limit int) (*RecoveryResult, error)

	GetSubscriptionsNeedingRenewal(ctx context.Context, daysAhead int) ([]RenewalCandidate, error)
	ProcessAutomaticRenewals(ctx context.Context, daysAhead int) (*RenewalBatch, error)

	// CheckAndUpdateSubscriptionStatus moves a lapsed entity to the free plan.
	// It reports whether the entity was expired by this call.
	CheckAndUpdateSubscriptionStatus(ctx context.Context, entityID snowflake.ID) (bool, error)
	ExpireLapsed(ctx context.Context, limit int) (int, error)
	CanAccessFeature(ctx context.Context, entityID snowflake.ID, featureKey string) (bool, error)
}

var (
	ErrDowngradeBlocked = errors.New("downgrade_blocked")
	ErrNotADowngrade    = errors.New("not_a_downgrade")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrIntentMismatch   = errors.New("subscription_intent_mismatch")
)

const (
	MessageUpgraded      = "Subscription upgraded successfully"
	MessageRenewed       = "Subscription renewed successfully"
	MessageFreeUpgrade   = "Subscription updated to free plan"
	MessageFreeRenewal   = "Free plan renewed"
	MessageChargeFailed  = "Payment failed"
	MessageStillActiveAt = "Subscription is still active until %s"
)
