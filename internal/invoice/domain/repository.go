package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	Statuses   []InvoiceStatus
	CustomerID *snowflake.ID
	Search     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, entityID, id snowflake.ID) (*Invoice, error)
	// LockByID loads an invoice by id alone under a row lock.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceIDs []snowflake.ID) ([]InvoiceItem, error)
	List(ctx context.Context, db *gorm.DB, entityID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]Invoice, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus, paidAt *time.Time, now time.Time) error
	UpdatePaymentLink(ctx context.Context, db *gorm.DB, id snowflake.ID, link string, now time.Time) error
	MarkShared(ctx context.Context, db *gorm.DB, id snowflake.ID, messageID string, now time.Time) error
	// MarkSent moves a draft invoice to sent. Other statuses are untouched.
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	// MarkOverdue flags unpaid invoices whose due date has passed.
	MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
