package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

type BusinessType string

const (
	BusinessRetail        BusinessType = "retail"
	BusinessServices      BusinessType = "services"
	BusinessManufacturing BusinessType = "manufacturing"
	BusinessTechnology    BusinessType = "technology"
	BusinessHospitality   BusinessType = "hospitality"
	BusinessOther         BusinessType = "other"
)

func (b BusinessType) Valid() bool {
	switch b {
	case BusinessRetail, BusinessServices, BusinessManufacturing, BusinessTechnology, BusinessHospitality, BusinessOther:
		return true
	default:
		return false
	}
}

// Entity is a tenant business. SubscriptionPlan holds a plan name; an empty
// value means the entity has never been initialized and is treated as free.
type Entity struct {
	ID                    snowflake.ID       `gorm:"primaryKey" json:"id"`
	Name                  string             `gorm:"not null" json:"name"`
	Slug                  string             `gorm:"not null;index" json:"slug"`
	Email                 string             `gorm:"not null;uniqueIndex" json:"email"`
	Phone                 *string            `gorm:"uniqueIndex" json:"phone,omitempty"`
	PasswordHash          string             `gorm:"not null" json:"-"`
	BusinessType          BusinessType       `gorm:"not null" json:"business_type"`
	Address               string             `json:"address,omitempty"`
	VATRate               decimal.Decimal    `gorm:"type:numeric(5,2);not null" json:"vat_rate"`
	SubscriptionPlan      string             `gorm:"not null;default:''" json:"subscription_plan"`
	SubscriptionStatus    SubscriptionStatus `gorm:"not null;default:'inactive';index" json:"subscription_status"`
	SubscriptionStartDate *time.Time         `json:"subscription_start_date,omitempty"`
	SubscriptionExpiry    *time.Time         `gorm:"index" json:"subscription_expiry,omitempty"`
	InvoicesCreated       int64              `gorm:"not null;default:0" json:"invoices_created"`
	CustomersCreated      int64              `gorm:"not null;default:0" json:"customers_created"`
	TeamMembersCount      int64              `gorm:"not null;default:1" json:"team_members_count"`
	CreatedAt             time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"not null" json:"updated_at"`
}

func (Entity) TableName() string { return "entities" }

// Subscription is the set of columns written by plan transitions.
type Subscription struct {
	Plan      string
	Status    SubscriptionStatus
	StartDate *time.Time
	Expiry    *time.Time
}

// UsageColumn is a counter column on entities.
type UsageColumn string

const (
	ColumnInvoicesCreated  UsageColumn = "invoices_created"
	ColumnCustomersCreated UsageColumn = "customers_created"
	ColumnTeamMembersCount UsageColumn = "team_members_count"
)

func (c UsageColumn) Valid() bool {
	switch c {
	case ColumnInvoicesCreated, ColumnCustomersCreated, ColumnTeamMembersCount:
		return true
	default:
		return false
	}
}

type Counters struct {
	InvoicesCreated  int64 `json:"invoices_created"`
	CustomersCreated int64 `json:"customers_created"`
	TeamMembersCount int64 `json:"team_members_count"`
}

type CounterDelta struct {
	EntityID snowflake.ID
	Column   UsageColumn
	Amount   int64
}
