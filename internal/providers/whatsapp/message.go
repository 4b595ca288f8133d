package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicepadi/internal/invoice/format"
)

type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// InvoiceMessage is the data rendered into a shared invoice message.
type InvoiceMessage struct {
	BusinessName  string
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       *time.Time
	Currency      string
	Items         []InvoiceLine
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	PaymentLink   string
}

func FormatInvoiceMessage(m InvoiceMessage) string {
	var b strings.Builder
	b.WriteString("*INVOICE*\n\n")
	fmt.Fprintf(&b, "*%s*\n", m.BusinessName)
	fmt.Fprintf(&b, "Invoice: %s\n", m.InvoiceNumber)
	fmt.Fprintf(&b, "Date: %s\n", m.IssueDate.Format("02/01/2006"))
	due := "N/A"
	if m.DueDate != nil {
		due = m.DueDate.Format("02/01/2006")
	}
	fmt.Fprintf(&b, "Due: %s\n\n", due)

	b.WriteString("*Items:*\n")
	for i, item := range m.Items {
		fmt.Fprintf(&b, "%d. %s - %s x %s = %s\n",
			i+1,
			item.Description,
			item.Quantity.String(),
			FormatAmount(item.UnitPrice, m.Currency),
			FormatAmount(item.UnitPrice.Mul(item.Quantity), m.Currency),
		)
	}

	b.WriteString("\n*Summary:*\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", FormatAmount(m.Subtotal, m.Currency))
	if m.Tax.IsPositive() {
		fmt.Fprintf(&b, "VAT (%s%%): %s\n", m.TaxRate.String(), FormatAmount(m.Tax, m.Currency))
	}
	fmt.Fprintf(&b, "*Total: %s*\n\n", FormatAmount(m.Total, m.Currency))

	if m.PaymentLink != "" {
		fmt.Fprintf(&b, "*Pay Online:* %s\n\n", m.PaymentLink)
	}
	b.WriteString("Thank you for your business!")
	return b.String()
}

// ShareLink builds a wa.me link that opens WhatsApp with the message prefilled.
func ShareLink(text string) string {
	return "https://wa.me/?text=" + url.QueryEscape(text)
}

// FormatAmount renders 1234567.5 as ₦1,234,567.50.
func FormatAmount(amount decimal.Decimal, currency string) string {
	symbol := currency
	if currency == "" || strings.EqualFold(currency, "NGN") {
		symbol = "₦"
	}

	grouped := format.GroupedAmount(amount)
	if rest, negative := strings.CutPrefix(grouped, "-"); negative {
		return "-" + symbol + rest
	}
	return symbol + grouped
}
