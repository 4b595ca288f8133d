package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BankAccount is a settlement account registered with the gateway as a
// subaccount. Invoice payments are split to the entity's active account.
type BankAccount struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntityID         snowflake.ID    `gorm:"not null;index" json:"entity_id"`
	BankCode         string          `gorm:"type:text;not null" json:"bank_code"`
	BankName         string          `gorm:"type:text" json:"bank_name"`
	AccountNumber    string          `gorm:"type:text;not null" json:"account_number"`
	AccountName      string          `gorm:"type:text" json:"account_name"`
	SubaccountCode   string          `gorm:"type:text;not null;uniqueIndex" json:"subaccount_code"`
	PercentageCharge decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentage_charge"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (BankAccount) TableName() string { return "bank_accounts" }
