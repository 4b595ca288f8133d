package domain

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"gorm.io/datatypes"
)

// SnapshotRow is the flat result of the entity/plan join.
type SnapshotRow struct {
	ID                    snowflake.ID
	Email                 string
	SubscriptionPlan      string
	SubscriptionStatus    string
	SubscriptionStartDate *time.Time
	SubscriptionExpiry    *time.Time
	InvoicesCreated       int64
	CustomersCreated      int64
	TeamMembersCount      int64

	PlanID             sql.NullInt64
	PlanName           sql.NullString
	PlanDisplayName    sql.NullString
	PlanDescription    sql.NullString
	PlanPrice          sql.NullInt64
	PlanCurrency       sql.NullString
	PlanBillingCycle   sql.NullString
	PlanMaxInvoices    sql.NullInt64
	PlanMaxCustomers   sql.NullInt64
	PlanMaxTeamMembers sql.NullInt64
	PlanFeatures       sql.NullString
	PlanBenefits       sql.NullString
	PlanIsPopular      sql.NullBool
}

// HasPlan reports whether the join found an active plan.
func (r SnapshotRow) HasPlan() bool {
	return r.PlanID.Valid && r.PlanID.Int64 != 0
}

func (r SnapshotRow) ToPlan() plandomain.Plan {
	features := plandomain.Features{}
	if r.PlanFeatures.Valid {
		_ = json.Unmarshal([]byte(r.PlanFeatures.String), &features)
	}
	var benefits []string
	if r.PlanBenefits.Valid {
		_ = json.Unmarshal([]byte(r.PlanBenefits.String), &benefits)
	}

	return plandomain.Plan{
		ID:             snowflake.ID(r.PlanID.Int64),
		Name:           r.PlanName.String,
		DisplayName:    r.PlanDisplayName.String,
		Description:    r.PlanDescription.String,
		Price:          r.PlanPrice.Int64,
		Currency:       r.PlanCurrency.String,
		BillingCycle:   r.PlanBillingCycle.String,
		MaxInvoices:    r.PlanMaxInvoices.Int64,
		MaxCustomers:   r.PlanMaxCustomers.Int64,
		MaxTeamMembers: r.PlanMaxTeamMembers.Int64,
		Features:       datatypes.NewJSONType(features),
		Benefits:       datatypes.JSONSlice[string](benefits),
		IsPopular:      r.PlanIsPopular.Bool,
		IsActive:       true,
	}
}
