package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
)

// DurationDays is the fixed length of a paid period. Periods are never prorated.
const DurationDays = 30

// Subscription is the plan state stored on an entity.
type Subscription struct {
	EntityID  snowflake.ID                    `json:"entity_id"`
	Plan      string                          `json:"plan"`
	Status    entitydomain.SubscriptionStatus `json:"status"`
	StartDate *time.Time                      `json:"start_date,omitempty"`
	Expiry    *time.Time                      `json:"expiry,omitempty"`
}

type UsagePercent struct {
	Invoices    float64 `json:"invoices"`
	Customers   float64 `json:"customers"`
	TeamMembers float64 `json:"team_members"`
}

// Current is the snapshot plus usage percentages. A percentage of -1 means unlimited.
type Current struct {
	entitlementdomain.Snapshot
	UsagePercent UsagePercent `json:"usage_percent"`
}

type PaidUpgradeRequest struct {
	EntityID snowflake.ID
	PlanName string
	Email    string
	CardID   *snowflake.ID
}

type RenewRequest struct {
	EntityID snowflake.ID
	Email    string
	CardID   *snowflake.ID
	// WithinDays lets an active subscription expiring inside the next
	// WithinDays days renew early. Zero requires a lapsed subscription.
	WithinDays int
}

type PaymentSummary struct {
	Reference string                  `json:"reference,omitempty"`
	Amount    decimal.Decimal         `json:"amount"`
	Currency  string                  `json:"currency"`
	Status    string                  `json:"status,omitempty"`
	PaidAt    *time.Time              `json:"paid_at,omitempty"`
	Card      *carddomain.CardSummary `json:"card,omitempty"`
}

// PaidResult is the outcome of a paid flow. A declined charge is Success=false
// with the gateway message; the entity's plan is untouched in that case.
type PaidResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Subscription *Subscription   `json:"subscription,omitempty"`
	Payment      *PaymentSummary `json:"payment,omitempty"`
}

// Completion reports whether a paid upgrade was applied by this call.
type Completion struct {
	Applied      bool          `json:"applied"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type RenewalCandidate struct {
	EntityID snowflake.ID `json:"entity_id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Plan     string       `json:"plan"`
	Expiry   time.Time    `json:"expiry"`
}

type RenewalFailure struct {
	EntityID snowflake.ID `json:"entity_id"`
	Email    string       `json:"email"`
	Error    string       `json:"error"`
}

type RenewalBatch struct {
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Failures   []RenewalFailure `json:"failures"`
}

type RecoveryResult struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	// Settled counts intents another path closed while the run verified them.
	Settled int `json:"settled"`
}

// UsageConflict is one counter already above the target plan's ceiling.
type UsageConflict struct {
	Resource entitlementdomain.Resource `json:"resource"`
	Current  int64                      `json:"current"`
	Limit    int64                      `json:"limit"`
}

type DowngradeBlockedError struct {
	Plan      string
	Conflicts []UsageConflict
}

func (e *DowngradeBlockedError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s usage %d exceeds limit %d", c.Resource, c.Current, c.Limit))
	}
	return fmt.Sprintf("cannot downgrade to %s: %s", e.Plan, strings.Join(parts, "; "))
}

func (e *DowngradeBlockedError) Is(target error) bool {
	return target == ErrDowngradeBlocked
}
