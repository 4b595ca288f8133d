package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreatePendingRequest struct {
	EntityID    snowflake.ID
	CustomerID  *snowflake.ID
	InvoiceID   *snowflake.ID
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	Description string
	Metadata    Metadata
}

// Ledger records payment transactions. Statuses only leave PENDING
// through a confirmed gateway outcome.
type Ledger interface {
	CreatePending(ctx context.Context, db *gorm.DB, req CreatePendingRequest) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	LockByReference(ctx context.Context, tx *gorm.DB, reference string) (*Transaction, error)
	MarkSuccess(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Transaction, error)
	ListStalePending(ctx context.Context, purpose Purpose, olderThan time.Duration, limit int) ([]Transaction, error)

	// RecordEvent stores a received event. It reports false with the stored
	// record when the event was already processed.
	RecordEvent(ctx context.Context, event *PaymentEvent) (*EventRecord, bool, error)
	MarkEventProcessed(ctx context.Context, id snowflake.ID) error
}

var (
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrInvalidReference    = errors.New("invalid_reference")
	ErrInvalidAmount       = errors.New("invalid_amount")
)
