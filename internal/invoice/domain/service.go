package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
)

type ItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity" binding:"omitempty,gte=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest bills an existing customer by CustomerID or creates
// one inline from Customer.
type CreateInvoiceRequest struct {
	CustomerID string                                `json:"customer_id"`
	Customer   *customerdomain.CreateCustomerRequest `json:"customer"`
	Currency   string                                `json:"currency" binding:"omitempty,oneof=NGN USD"`
	Items      []ItemRequest                         `json:"items" binding:"required,min=1,dive"`
	IssueDate  *time.Time                            `json:"issue_date"`
	DueDate    *time.Time                            `json:"due_date"`
	TaxRate    *decimal.Decimal                      `json:"tax_rate"`
	Notes      string                                `json:"notes"`
	Terms      string                                `json:"terms"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
	Search     string `form:"search"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Detail is an invoice with its customer.
type Detail struct {
	Invoice
	Customer *customerdomain.Customer `json:"customer"`
}

type InitiatePaymentRequest struct {
	// Amount defaults to the invoice total.
	Amount *decimal.Decimal `json:"amount"`
	Email  string           `json:"email" binding:"omitempty,email"`
}

// PaymentSession is a hosted payment page opened for an invoice. A gateway
// rejection is Success=false; the pending transaction is marked FAILED.
type PaymentSession struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PaymentURL string          `json:"payment_url,omitempty"`
	AccessCode string          `json:"access_code,omitempty"`
}

// PaymentApplication reports the effect of a confirmed invoice payment.
type PaymentApplication struct {
	Applied   bool            `json:"applied"`
	InvoiceID snowflake.ID    `json:"invoice_id"`
	Status    InvoiceStatus   `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

type ShareRequest struct {
	// Phone defaults to the customer's phone.
	Phone  string `json:"phone"`
	PDFURL string `json:"pdf_url" binding:"omitempty,url"`
}

// ShareResult carries a wa.me fallback link when delivery did not succeed.
type ShareResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	Phone        string `json:"phone,omitempty"`
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

type Service interface {
	// Create reserves the invoice entitlement, and the customer entitlement
	// when the customer is created inline, in the same transaction.
	Create(ctx context.Context, entityID snowflake.ID, req CreateInvoiceRequest) (*Detail, error)
	GetByID(ctx context.Context, entityID snowflake.ID, id string) (*Detail, error)
	List(ctx context.Context, entityID snowflake.ID, req ListInvoiceRequest) (ListInvoiceResponse, error)

	InitiatePayment(ctx context.Context, entityID snowflake.ID, id string, req InitiatePaymentRequest) (*PaymentSession, error)
	// ApplyPayment settles the invoice for a confirmed payment reference.
	// Replays of an already SUCCESS transaction are a no-op.
	ApplyPayment(ctx context.Context, reference string) (*PaymentApplication, error)

	ShareViaWhatsApp(ctx context.Context, entityID snowflake.ID, id string, req ShareRequest) (*ShareResult, error)
	RenderPDF(ctx context.Context, entityID snowflake.ID, id string) ([]byte, string, error)
	// PaymentQR encodes the invoice payment link as a PNG QR code.
	PaymentQR(ctx context.Context, entityID snowflake.ID, id string, size int) ([]byte, error)
	MarkOverdue(ctx context.Context) (int64, error)
}

var (
	ErrInvalidInvoiceID      = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrInvalidItems          = errors.New("invalid_items")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidTaxRate        = errors.New("invalid_tax_rate")
	ErrInvalidDueDate        = errors.New("invalid_due_date")
	ErrCustomerRequired      = errors.New("customer_required")
	ErrInvoiceAlreadyPaid    = errors.New("invoice_already_paid")
	ErrInvalidPaymentAmount  = errors.New("invalid_payment_amount")
	ErrAmountExceedsTotal    = errors.New("amount_exceeds_total")
	ErrCustomerEmailRequired = errors.New("customer_email_required")
	ErrPhoneRequired         = errors.New("phone_required")
	ErrNotInvoicePayment     = errors.New("not_invoice_payment")
	ErrInvalidStatusFilter   = errors.New("invalid_status_filter")
	ErrPaymentLinkMissing    = errors.New("payment_link_missing")
)

// AmountExceedsTotalError reports a payment request above the invoice total.
type AmountExceedsTotalError struct {
	Amount decimal.Decimal
	Total  decimal.Decimal
}

func (e *AmountExceedsTotalError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds invoice total %s", e.Amount.StringFixed(2), e.Total.StringFixed(2))
}

func (e *AmountExceedsTotalError) Is(target error) bool {
	return target == ErrAmountExceedsTotal
}
