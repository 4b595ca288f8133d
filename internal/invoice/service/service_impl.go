package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/invoicepadi/internal/invoice/format"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/smallbiznis/invoicepadi/internal/providers/pdf"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       config.Config
	Repo         invoicedomain.Repository
	EntityRepo   entitydomain.Repository
	Customers    customerdomain.Service
	Entitlements entitlementdomain.Service
	Ledger       paymentdomain.Ledger
	BankAccounts bankaccountdomain.Service
	Gateway      paystack.Client
	WhatsApp     whatsapp.Sender
	PDF          pdf.Renderer
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	callbackURL  string
	repo         invoicedomain.Repository
	entityRepo   entitydomain.Repository
	customers    customerdomain.Service
	entitlements entitlementdomain.Service
	ledger       paymentdomain.Ledger
	bankAccounts bankaccountdomain.Service
	gateway      paystack.Client
	whatsapp     whatsapp.Sender
	pdf          pdf.Renderer
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:        p.GenID,
		clock:        p.Clock,
		callbackURL:  p.Config.Paystack.CallbackURL,
		repo:         p.Repo,
		entityRepo:   p.EntityRepo,
		customers:    p.Customers,
		entitlements: p.Entitlements,
		ledger:       p.Ledger,
		bankAccounts: p.BankAccounts,
		gateway:      p.Gateway,
		whatsapp:     p.WhatsApp,
		pdf:          p.PDF,
	}
}

var hundred = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, entityID snowflake.ID, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Detail, error) {
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if req.TaxRate != nil && (req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(hundred)) {
		return nil, invoicedomain.ErrInvalidTaxRate
	}

	var customerID snowflake.ID
	switch {
	case strings.TrimSpace(req.CustomerID) != "":
		customerID, err = snowflake.ParseString(strings.TrimSpace(req.CustomerID))
		if err != nil || customerID == 0 {
			return nil, customerdomain.ErrInvalidID
		}
	case req.Customer == nil:
		return nil, invoicedomain.ErrCustomerRequired
	}

	now := s.clock.Now()
	issueDate := now
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}
	if req.DueDate != nil && req.DueDate.Before(issueDate) {
		return nil, invoicedomain.ErrInvalidDueDate
	}

	invoiceID := s.genID.Generate()
	items, subtotal, err := s.buildItems(entityID, invoiceID, req.Items, now)
	if err != nil {
		return nil, err
	}

	var detail *invoicedomain.Detail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.entitlements.Reserve(ctx, tx, entityID, entitlementdomain.ResourceInvoice, 1); err != nil {
			return err
		}

		entity, err := s.entityRepo.FindByID(ctx, tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return entitydomain.ErrEntityNotFound
		}

		var customer *customerdomain.Customer
		if customerID != 0 {
			customer, err = s.customers.GetByIDTx(ctx, tx, entityID, customerID)
		} else {
			customer, err = s.customers.CreateTx(ctx, tx, entityID, *req.Customer)
		}
		if err != nil {
			return err
		}

		counters, err := s.entityRepo.GetCounters(ctx, tx, entityID)
		if err != nil {
			return err
		}
		if counters == nil {
			return entitydomain.ErrEntityNotFound
		}
		number, err := invoiceformat.FormatInvoiceNumber(invoiceformat.DefaultInvoiceNumberTemplate, issueDate, counters.InvoicesCreated)
		if err != nil {
			return err
		}

		taxRate := entity.VATRate
		if req.TaxRate != nil {
			taxRate = *req.TaxRate
		}
		tax := subtotal.Mul(taxRate).Div(hundred).Round(2)

		invoice := invoicedomain.Invoice{
			ID:            invoiceID,
			InvoiceNumber: number,
			EntityID:      entityID,
			CustomerID:    customer.ID,
			Status:        invoicedomain.InvoiceStatusDraft,
			Currency:      currency,
			IssueDate:     issueDate,
			DueDate:       req.DueDate,
			Notes:         strings.TrimSpace(req.Notes),
			Terms:         strings.TrimSpace(req.Terms),
			Subtotal:      subtotal,
			TaxRate:       taxRate,
			Tax:           tax,
			Total:         subtotal.Add(tax),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		invoice.Items = items
		detail = &invoicedomain.Detail{Invoice: invoice, Customer: customer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("entity_id", entityID.String()),
		zap.String("invoice_id", detail.ID.String()),
		zap.String("invoice_number", detail.InvoiceNumber),
		zap.String("total", detail.Total.StringFixed(2)),
	)
	return detail, nil
}

func (s *Service) buildItems(entityID, invoiceID snowflake.ID, reqs []invoicedomain.ItemRequest, now time.Time) ([]invoicedomain.InvoiceItem, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, invoicedomain.ErrInvalidItems
	}

	subtotal := decimal.Zero
	items := make([]invoicedomain.InvoiceItem, 0, len(reqs))
	for i, req := range reqs {
		name := strings.TrimSpace(req.Name)
		quantity := req.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if name == "" || quantity < 0 || req.UnitPrice.IsNegative() {
			return nil, decimal.Zero, invoicedomain.ErrInvalidItems
		}

		unitPrice := req.UnitPrice.Round(2)
		amount := unitPrice.Mul(decimal.NewFromInt(quantity))
		subtotal = subtotal.Add(amount)
		items = append(items, invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			EntityID:    entityID,
			InvoiceID:   invoiceID,
			Position:    i,
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Amount:      amount,
			CreatedAt:   now,
		})
	}
	return items, subtotal, nil
}

func (s *Service) GetByID(ctx context.Context, entityID snowflake.ID, id string) (*invoicedomain.Detail, error) {
	invoice, err := s.load(ctx, entityID, id)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByIDTx(ctx, s.db, entityID, invoice.CustomerID)
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return nil, err
	}
	return &invoicedomain.Detail{Invoice: *invoice, Customer: customer}, nil
}

func (s *Service) List(ctx context.Context, entityID snowflake.ID, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListInvoiceFilter{Search: req.Search}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(part)))
			if !status.Valid() {
				return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatusFilter
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil || customerID == 0 {
			return invoicedomain.ListInvoiceResponse{}, customerdomain.ErrInvalidID
		}
		filter.CustomerID = &customerID
	}

	items, err := s.repo.List(ctx, s.db, entityID, filter, req.Pagination)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices, pageInfo := pagination.Page(items, req.Pagination, func(i invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{
			ID:        i.ID.String(),
			CreatedAt: i.CreatedAt.Format(time.RFC3339Nano),
		}
	})
	if err := s.attachItems(ctx, invoices); err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	if invoices == nil {
		invoices = []invoicedomain.Invoice{}
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) load(ctx context.Context, entityID snowflake.ID, id string) (*invoicedomain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || invoiceID == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, entityID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	invoices := []invoicedomain.Invoice{*invoice}
	if err := s.attachItems(ctx, invoices); err != nil {
		return nil, err
	}
	return &invoices[0], nil
}

func (s *Service) attachItems(ctx context.Context, invoices []invoicedomain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(invoices))
	for _, invoice := range invoices {
		ids = append(ids, invoice.ID)
	}

	items, err := s.repo.ListItems(ctx, s.db, ids)
	if err != nil {
		return err
	}
	byInvoice := make(map[snowflake.ID][]invoicedomain.InvoiceItem, len(invoices))
	for _, item := range items {
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}
	for i := range invoices {
		invoices[i].Items = byInvoice[invoices[i].ID]
		if invoices[i].Items == nil {
			invoices[i].Items = []invoicedomain.InvoiceItem{}
		}
	}
	return nil
}

func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkOverdue(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", count))
	}
	return count, nil
}

func normalizeCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	switch currency {
	case "":
		return invoicedomain.CurrencyNGN, nil
	case invoicedomain.CurrencyNGN, invoicedomain.CurrencyUSD:
		return currency, nil
	default:
		return "", invoicedomain.ErrInvalidCurrency
	}
}

func invoiceFilename(invoice *invoicedomain.Invoice) string {
	return fmt.Sprintf("%s.pdf", invoice.InvoiceNumber)
}
