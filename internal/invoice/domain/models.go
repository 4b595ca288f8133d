// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially-paid"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusPartiallyPaid:
		return true
	default:
		return false
	}
}

const (
	CurrencyNGN = "NGN"
	CurrencyUSD = "USD"
)

// Invoice is a bill issued by an entity to one of its customers.
// Amounts are in major units of Currency.
type Invoice struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber     string          `gorm:"type:text;not null;uniqueIndex:ux_invoices_entity_number" json:"invoice_number"`
	EntityID          snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_entity_number" json:"entity_id"`
	CustomerID        snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	Status            InvoiceStatus   `gorm:"type:text;not null;default:'draft';index" json:"status"`
	Currency          string          `gorm:"type:text;not null;default:'NGN'" json:"currency"`
	IssueDate         time.Time       `gorm:"not null" json:"issue_date"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	Terms             string          `gorm:"type:text" json:"terms,omitempty"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxRate           decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	Tax               decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"tax"`
	Total             decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	PaymentLink       string          `gorm:"type:text" json:"payment_link,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	WhatsAppShared    bool            `gorm:"column:whatsapp_shared;not null;default:false" json:"whatsapp_shared"`
	WhatsAppSharedAt  *time.Time      `gorm:"column:whatsapp_shared_at" json:"whatsapp_shared_at,omitempty"`
	WhatsAppMessageID string          `gorm:"column:whatsapp_message_id;type:text" json:"whatsapp_message_id,omitempty"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`

	Items []InvoiceItem `gorm:"-" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one line on an invoice.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntityID    snowflake.ID    `gorm:"not null;index" json:"-"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"-"`
	Position    int             `gorm:"not null" json:"-"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"not null" json:"-"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
