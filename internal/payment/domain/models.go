package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusSuccess   TransactionStatus = "SUCCESS"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

const (
	TypePayment      = "PAYMENT"
	ChannelPaystack  = "PAYSTACK"
	ProviderPaystack = "paystack"
)

// Transaction is one attempted charge. Amount is in major units (Naira).
type Transaction struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	Code          string            `json:"code" gorm:"type:text;not null;uniqueIndex"`
	EntityID      snowflake.ID      `json:"entity_id" gorm:"not null;index"`
	CustomerID    *snowflake.ID     `json:"customer_id,omitempty" gorm:"index"`
	InvoiceID     *snowflake.ID     `json:"invoice_id,omitempty" gorm:"index"`
	Amount        decimal.Decimal   `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency      string            `json:"currency" gorm:"type:text;not null;default:'NGN'"`
	Type          string            `json:"type" gorm:"type:text;not null"`
	Status        TransactionStatus `json:"status" gorm:"type:text;not null;index"`
	Channel       string            `json:"channel" gorm:"type:text;not null"`
	Purpose       Purpose           `json:"purpose" gorm:"type:text;not null;index"`
	Reference     string            `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	Description   string            `json:"description,omitempty" gorm:"type:text"`
	Metadata      datatypes.JSON    `json:"metadata,omitempty" gorm:"type:jsonb"`
	FailureReason string            `json:"failure_reason,omitempty" gorm:"type:text"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// EventRecord is one received gateway event, unique per provider event id.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Reference       string         `json:"reference" gorm:"type:text;index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventChargeSuccess       = "charge.success"
	EventTransferSuccess     = "transfer.success"
	EventSubscriptionCreate  = "subscription.create"
	EventSubscriptionDisable = "subscription.disable"
)

// PaymentEvent is the canonical event parsed by adapters.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	Reference       string
	AmountKobo      int64
	Currency        string
	Metadata        []byte
	OccurredAt      time.Time
	RawPayload      []byte
}

// AmountFromKobo converts a gateway minor-unit amount to Naira.
func AmountFromKobo(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

// KoboFromAmount converts Naira to kobo, rounding half away from zero.
func KoboFromAmount(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
