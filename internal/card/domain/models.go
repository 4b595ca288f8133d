package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Card is a reusable gateway authorization owned by one entity. At most one
// active card per entity is default; ux_cards_entity_default enforces it.
type Card struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	EntityID          snowflake.ID `json:"entity_id" gorm:"not null;index:ix_cards_entity_active;uniqueIndex:ux_cards_entity_default,where:is_default = true AND is_active = true"`
	AuthorizationCode string       `json:"-" gorm:"type:text;not null;uniqueIndex"`
	CardType          string       `json:"card_type" gorm:"type:text;not null"`
	Last4             string       `json:"last4" gorm:"type:text;not null"`
	ExpMonth          string       `json:"exp_month" gorm:"type:text;not null"`
	ExpYear           string       `json:"exp_year" gorm:"type:text;not null"`
	Bin               string       `json:"-" gorm:"type:text"`
	Bank              string       `json:"bank" gorm:"type:text"`
	CountryCode       string       `json:"country_code" gorm:"type:text;not null;default:'NG'"`
	Brand             string       `json:"brand" gorm:"type:text;not null"`
	IsDefault         bool         `json:"is_default" gorm:"not null;default:false"`
	IsActive          bool         `json:"is_active" gorm:"not null;default:true;index:ix_cards_entity_active"`
	CardName          string       `json:"card_name" gorm:"type:text;not null;default:'My Card'"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (Card) TableName() string { return "cards" }

func (c Card) Summary() CardSummary {
	return CardSummary{ID: c.ID, Last4: c.Last4, Brand: c.Brand}
}

type CardSummary struct {
	ID    snowflake.ID `json:"id"`
	Last4 string       `json:"last4"`
	Brand string       `json:"brand"`
}

// Authorization is the card token payload reported by the gateway.
type Authorization struct {
	AuthorizationCode string
	CardType          string
	Last4             string
	ExpMonth          string
	ExpYear           string
	Bin               string
	Bank              string
	CountryCode       string
	Brand             string
	Reusable          bool
}

type CardSaveSession struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	PaymentURL string          `json:"payment_url,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

type SaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Card    *Card  `json:"card,omitempty"`
}

type ChargeRequest struct {
	EntityID    snowflake.ID
	CardID      *snowflake.ID
	Amount      decimal.Decimal
	Email       string
	Description string
	// Reference is generated when empty.
	Reference string
	Metadata  map[string]any
}

// ChargeResult is the normalized outcome of a stored-card charge. A decline
// or a missing card is Success=false, never an error.
type ChargeResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status,omitempty"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Card      *CardSummary    `json:"card,omitempty"`
}

type Readiness struct {
	HasCards    bool         `json:"has_cards"`
	DefaultCard *CardSummary `json:"default_card,omitempty"`
	TotalCards  int          `json:"total_cards"`
	CanUpgrade  bool         `json:"can_upgrade"`
}
