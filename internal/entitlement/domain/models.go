package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
)

type Resource string

const (
	ResourceInvoice    Resource = "invoice"
	ResourceCustomer   Resource = "customer"
	ResourceTeamMember Resource = "teamMember"
)

func (r Resource) Valid() bool {
	switch r {
	case ResourceInvoice, ResourceCustomer, ResourceTeamMember:
		return true
	default:
		return false
	}
}

// Gated reports whether creation of r is checked against a plan ceiling.
func (r Resource) Gated() bool {
	return r == ResourceInvoice || r == ResourceCustomer
}

func (r Resource) Column() entitydomain.UsageColumn {
	switch r {
	case ResourceInvoice:
		return entitydomain.ColumnInvoicesCreated
	case ResourceCustomer:
		return entitydomain.ColumnCustomersCreated
	case ResourceTeamMember:
		return entitydomain.ColumnTeamMembersCount
	default:
		return ""
	}
}

func (r Resource) plural() string {
	switch r {
	case ResourceInvoice:
		return "invoices"
	case ResourceCustomer:
		return "customers"
	case ResourceTeamMember:
		return "team members"
	default:
		return string(r)
	}
}

type Usage struct {
	InvoicesCreated  int64 `json:"invoices_created"`
	CustomersCreated int64 `json:"customers_created"`
	TeamMembersCount int64 `json:"team_members_count"`
}

func (u Usage) For(r Resource) int64 {
	switch r {
	case ResourceInvoice:
		return u.InvoicesCreated
	case ResourceCustomer:
		return u.CustomersCreated
	case ResourceTeamMember:
		return u.TeamMembersCount
	default:
		return 0
	}
}

type Limits struct {
	MaxInvoices    int64 `json:"max_invoices"`
	MaxCustomers   int64 `json:"max_customers"`
	MaxTeamMembers int64 `json:"max_team_members"`
}

func LimitsOf(plan plandomain.Plan) Limits {
	return Limits{
		MaxInvoices:    plan.MaxInvoices,
		MaxCustomers:   plan.MaxCustomers,
		MaxTeamMembers: plan.MaxTeamMembers,
	}
}

func (l Limits) For(r Resource) int64 {
	switch r {
	case ResourceInvoice:
		return l.MaxInvoices
	case ResourceCustomer:
		return l.MaxCustomers
	case ResourceTeamMember:
		return l.MaxTeamMembers
	default:
		return 0
	}
}

// Snapshot is plan, status and counters read together in one statement.
type Snapshot struct {
	EntityID     snowflake.ID                    `json:"entity_id"`
	Email        string                          `json:"email"`
	Plan         plandomain.Plan                 `json:"plan"`
	PlanAssigned bool                            `json:"plan_assigned"`
	Status       entitydomain.SubscriptionStatus `json:"status"`
	StartDate    *time.Time                      `json:"start_date,omitempty"`
	Expiry       *time.Time                      `json:"expiry,omitempty"`
	Usage        Usage                           `json:"usage"`
	Limits       Limits                          `json:"limits"`
}

// Allows reports whether amount more of r fits under the plan ceiling.
func (s Snapshot) Allows(r Resource, amount int64) bool {
	limit := s.Limits.For(r)
	if limit == plandomain.Unlimited {
		return true
	}
	return s.Usage.For(r)+amount <= limit
}

// UsagePercent is the share of the ceiling consumed, or -1 when unlimited.
func (s Snapshot) UsagePercent(r Resource) float64 {
	limit := s.Limits.For(r)
	if limit == plandomain.Unlimited {
		return -1
	}
	if limit == 0 {
		return 100
	}
	return float64(s.Usage.For(r)) * 100 / float64(limit)
}

type UsageUpdate struct {
	EntityID string   `json:"entity_id"`
	Resource Resource `json:"resource"`
	Amount   int64    `json:"amount"`
}

type BatchError struct {
	EntityID string `json:"entity_id"`
	Error    string `json:"error"`
}

type BatchResult struct {
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Errors     []BatchError `json:"errors"`
}

// LimitExceededError carries the usage and ceiling that blocked a creation.
type LimitExceededError struct {
	Resource Resource
	Plan     string
	Current  int64
	Limit    int64
}

func (e *LimitExceededError) Error() string {
	singular := string(e.Resource)
	if e.Resource == ResourceTeamMember {
		singular = "team member"
	}
	return fmt.Sprintf("%s limit reached (%d of %d on the %s plan). Please upgrade your plan to create more %s.",
		capitalize(singular), e.Current, e.Limit, e.Plan, e.Resource.plural())
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
