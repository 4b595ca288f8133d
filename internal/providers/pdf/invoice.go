package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicepadi/internal/invoice/format"
)

const dateLayout = "02 Jan 2006"

type marotoRenderer struct{}

func New() Renderer {
	return &marotoRenderer{}
}

func (r *marotoRenderer) RenderInvoice(ctx context.Context, invoice InvoiceDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Invoice"
	if strings.EqualFold(invoice.Status, "paid") {
		title = "Invoice (PAID)"
	}
	m.AddRow(12,
		text.NewCol(8, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, invoice.BusinessName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	due := "N/A"
	if invoice.DueDate != nil {
		due = invoice.DueDate.Format(dateLayout)
	}
	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+invoice.IssueDate.Format(dateLayout), props.Text{Top: 4}),
			text.New("Date due: "+due, props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(35,
		col.New(6).Add(
			text.New(invoice.BusinessName, props.Text{Style: fontstyle.Bold}),
			text.New(invoice.BusinessAddress, props.Text{Top: 5}),
			text.New(invoice.BusinessEmail, props.Text{Top: 14}),
			text.New(invoice.BusinessPhone, props.Text{Top: 18}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(billTo(invoice), props.Text{Top: 5}),
			text.New(invoice.CustomerAddress, props.Text{Top: 9}),
			text.New(invoice.CustomerEmail, props.Text{Top: 18}),
			text.New(invoice.CustomerPhone, props.Text{Top: 22}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, money(invoice.Total, invoice.Currency)+" due "+due, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range invoice.Items {
		label := item.Name
		if item.Description != "" {
			label += " - " + item.Description
		}
		m.AddRow(10,
			text.NewCol(6, label, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.UnitPrice, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.Amount, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, money(invoice.Subtotal, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	if invoice.Tax.IsPositive() {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, "VAT ("+invoice.TaxRate.String()+"%)", props.Text{Size: 9}),
			text.NewCol(2, money(invoice.Tax, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, money(invoice.Total, invoice.Currency), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if invoice.PaymentLink != "" {
		m.AddRow(30,
			col.New(3).Add(code.NewQr(invoice.PaymentLink, props.Rect{Percent: 95, Center: true})),
			text.NewCol(9, "Scan or pay online: "+invoice.PaymentLink, props.Text{Size: 9, Top: 12}),
		)
	}
	if invoice.Notes != "" {
		m.AddRow(12,
			text.NewCol(12, "Notes: "+invoice.Notes, props.Text{Size: 9, Top: 2}),
		)
	}
	if invoice.Terms != "" {
		m.AddRow(12,
			text.NewCol(12, "Terms: "+invoice.Terms, props.Text{Size: 9, Top: 2}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func billTo(invoice InvoiceDocument) string {
	if invoice.CustomerCompany == "" {
		return invoice.CustomerName
	}
	return invoice.CustomerName + ", " + invoice.CustomerCompany
}

// money renders 1234.5 as "NGN 1,234.50". The built-in fonts have no Naira glyph.
func money(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "NGN"
	}
	grouped := format.GroupedAmount(amount)
	if rest, negative := strings.CutPrefix(grouped, "-"); negative {
		return "-" + currency + " " + rest
	}
	return currency + " " + grouped
}
