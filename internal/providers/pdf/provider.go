package pdf

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Renderer turns an invoice into a printable document.
type Renderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

type InvoiceDocument struct {
	BusinessName    string
	BusinessEmail   string
	BusinessPhone   string
	BusinessAddress string

	CustomerName    string
	CustomerCompany string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string

	InvoiceNumber string
	Status        string
	Currency      string
	IssueDate     time.Time
	DueDate       *time.Time

	Items    []LineItem
	Subtotal decimal.Decimal
	TaxRate  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	Notes       string
	Terms       string
	PaymentLink string
}

type LineItem struct {
	Name        string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}
