package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// Unlimited marks a max-count field with no ceiling.
const Unlimited int64 = -1

const (
	CurrencyNGN  = "NGN"
	CycleMonthly = "monthly"
)

// Feature keys understood by the feature gate.
const (
	FeatureWhatsAppSharing   = "whatsappSharing"
	FeaturePDFExport         = "pdfExport"
	FeatureOnlinePayments    = "onlinePayments"
	FeatureAnalytics         = "analytics"
	FeatureRecurringInvoices = "recurringInvoices"
	FeatureTaxReports        = "taxReports"
	FeatureMultiCurrency     = "multiCurrency"
	FeatureNigerianVAT       = "nigerianVAT"
	FeatureWhiteLabel        = "whiteLabel"
	FeatureAPIAccess         = "apiAccess"
)

// FeatureOrder is the display order used by plan comparison.
var FeatureOrder = []string{
	FeatureWhatsAppSharing,
	FeaturePDFExport,
	FeatureNigerianVAT,
	FeatureOnlinePayments,
	FeatureAnalytics,
	FeatureRecurringInvoices,
	FeatureTaxReports,
	FeatureMultiCurrency,
	FeatureWhiteLabel,
	FeatureAPIAccess,
}

type Features map[string]bool

type Plan struct {
	ID             snowflake.ID                 `gorm:"primaryKey" json:"id"`
	Name           string                       `gorm:"not null;index" json:"name"`
	DisplayName    string                       `gorm:"not null" json:"display_name"`
	Description    string                       `json:"description"`
	Price          int64                        `gorm:"not null" json:"price"`
	Currency       string                       `gorm:"not null" json:"currency"`
	BillingCycle   string                       `gorm:"not null" json:"billing_cycle"`
	MaxInvoices    int64                        `gorm:"not null" json:"max_invoices"`
	MaxCustomers   int64                        `gorm:"not null" json:"max_customers"`
	MaxTeamMembers int64                        `gorm:"not null" json:"max_team_members"`
	Features       datatypes.JSONType[Features] `gorm:"not null" json:"features"`
	Benefits       datatypes.JSONSlice[string]  `json:"benefits"`
	IsPopular      bool                         `gorm:"not null;default:false" json:"is_popular"`
	IsActive       bool                         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time                    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time                    `gorm:"not null" json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }

// HasFeature reports whether the plan grants key. Unknown keys are false.
func (p Plan) HasFeature(key string) bool {
	return p.Features.Data()[key]
}

func (p Plan) IsFree() bool {
	return p.Price == 0
}

// NormalizeName lowercases and trims a plan name for lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func IsKnownName(name string) bool {
	_, ok := canonical[NormalizeName(name)]
	return ok
}
