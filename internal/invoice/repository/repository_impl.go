package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, invoice_number, entity_id, customer_id, status, currency, issue_date, due_date,
			notes, terms, subtotal, tax_rate, tax, total, payment_link, whatsapp_shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.EntityID,
		invoice.CustomerID,
		invoice.Status,
		invoice.Currency,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Notes,
		invoice.Terms,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.Tax,
		invoice.Total,
		invoice.PaymentLink,
		invoice.WhatsAppShared,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, entityID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("entity_id = ? AND id = ?", entityID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceIDs []snowflake.ID) ([]domain.InvoiceItem, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	var items []domain.InvoiceItem
	err := db.WithContext(ctx).
		Where("invoice_id IN ?", invoiceIDs).
		Order("invoice_id, position").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, entityID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]domain.Invoice, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("entity_id = ?", entityID)
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		stmt = stmt.Where("LOWER(invoice_number) LIKE ?", "%"+search+"%")
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var invoices []domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.InvoiceStatus, paidAt *time.Time, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = COALESCE(?, paid_at), updated_at = ? WHERE id = ?`,
		status,
		paidAt,
		now,
		id,
	).Error
}

func (r *repo) UpdatePaymentLink(ctx context.Context, db *gorm.DB, id snowflake.ID, link string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET payment_link = ?, updated_at = ? WHERE id = ?`,
		link,
		now,
		id,
	).Error
}

func (r *repo) MarkShared(ctx context.Context, db *gorm.DB, id snowflake.ID, messageID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET whatsapp_shared = ?, whatsapp_shared_at = ?, whatsapp_message_id = ?, updated_at = ?
		 WHERE id = ?`,
		true,
		now,
		messageID,
		now,
		id,
	).Error
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.InvoiceStatusSent,
		now,
		id,
		domain.InvoiceStatusDraft,
	).Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ?
		 WHERE status IN (?, ?) AND due_date IS NOT NULL AND due_date < ?`,
		domain.InvoiceStatusOverdue,
		now,
		domain.InvoiceStatusSent,
		domain.InvoiceStatusPartiallyPaid,
		now,
	)
	return res.RowsAffected, res.Error
}
