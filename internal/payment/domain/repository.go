package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Transaction, error)
	LockByReference(ctx context.Context, db *gorm.DB, reference string) (*Transaction, error)
	// Transition moves a PENDING transaction to a terminal status. It reports
	// false when the row was not PENDING.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, to TransactionStatus, failureReason string, at time.Time) (bool, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Transaction, error)
	// ListStalePending reads PENDING rows of one purpose created before the
	// cutoff, oldest first. It takes no locks; callers settle each row through
	// LockByReference and Transition.
	ListStalePending(ctx context.Context, db *gorm.DB, purpose Purpose, before time.Time, limit int) ([]Transaction, error)

	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
