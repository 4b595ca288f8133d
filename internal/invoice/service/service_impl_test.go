package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	bankaccountrepo "github.com/smallbiznis/invoicepadi/internal/bankaccount/repository"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	customerrepo "github.com/smallbiznis/invoicepadi/internal/customer/repository"
	customerservice "github.com/smallbiznis/invoicepadi/internal/customer/service"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitlementrepo "github.com/smallbiznis/invoicepadi/internal/entitlement/repository"
	entitlementservice "github.com/smallbiznis/invoicepadi/internal/entitlement/service"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	entityrepo "github.com/smallbiznis/invoicepadi/internal/entity/repository"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/invoicepadi/internal/invoice/repository"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/invoicepadi/internal/payment/repository"
	paymentservice "github.com/smallbiznis/invoicepadi/internal/payment/service"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	planrepo "github.com/smallbiznis/invoicepadi/internal/plan/repository"
	planservice "github.com/smallbiznis/invoicepadi/internal/plan/service"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack/mock"
	"github.com/smallbiznis/invoicepadi/internal/providers/pdf"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	phone string
	res   *whatsapp.SendResult
	err   error
}

func (f *fakeSender) SendText(ctx context.Context, phone, text string) (*whatsapp.SendResult, error) {
	return f.record(phone, text)
}

func (f *fakeSender) SendMedia(ctx context.Context, phone, mediaType string, media whatsapp.Media) (*whatsapp.SendResult, error) {
	return f.record(phone, media.URL)
}

func (f *fakeSender) record(phone, body string) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phone = phone
	f.sent = append(f.sent, body)
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &whatsapp.SendResult{Success: true, MessageID: "msg_1"}, nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	node     *snowflake.Node
	clock    *clock.FakeClock
	gateway  *mock.MockClient
	sender   *fakeSender
	ledger   paymentdomain.Ledger
	customer customerdomain.Service
}

func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(
		&plandomain.Plan{},
		&entitydomain.Entity{},
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Transaction{},
		&bankaccountdomain.BankAccount{},
	); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	gateway := mock.NewMockClient(gomock.NewController(t))
	sender := &fakeSender{}
	log := zap.NewNop()
	entities := entityrepo.Provide()

	plans := planservice.NewService(planservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  planrepo.Provide(),
	})
	_, err = plans.Reseed(context.Background(), plandomain.DefaultDefinitions())
	require.NoError(t, err)

	entitlements := entitlementservice.NewService(entitlementservice.Params{
		DB:         db,
		Log:        log,
		Repo:       entitlementrepo.Provide(),
		EntityRepo: entities,
		Plans:      plans,
	})
	customers := customerservice.New(customerservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         customerrepo.Provide(),
		Entitlements: entitlements,
	})
	ledger := paymentservice.NewService(paymentservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  paymentrepo.Provide(),
	})
	bankAccounts := &staticBankAccounts{db: db, repo: bankaccountrepo.Provide()}

	cfg := config.Config{Paystack: config.PaystackConfig{CallbackURL: "https://app.example.com/paid"}}
	svc := NewService(ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Config:       cfg,
		Repo:         invoicerepo.Provide(),
		EntityRepo:   entities,
		Customers:    customers,
		Entitlements: entitlements,
		Ledger:       ledger,
		BankAccounts: bankAccounts,
		Gateway:      gateway,
		WhatsApp:     sender,
		PDF:          pdf.New(),
	}).(*Service)

	return &fixture{
		db:       db,
		svc:      svc,
		node:     node,
		clock:    clk,
		gateway:  gateway,
		sender:   sender,
		ledger:   ledger,
		customer: customers,
	}
}

// staticBankAccounts reads accounts straight from the repository.
type staticBankAccounts struct {
	db   *gorm.DB
	repo bankaccountdomain.Repository
}

func (s *staticBankAccounts) Add(ctx context.Context, entityID snowflake.ID, req bankaccountdomain.AddBankAccountRequest) (*bankaccountdomain.BankAccount, error) {
	return nil, errors.New("not supported")
}

func (s *staticBankAccounts) Active(ctx context.Context, entityID snowflake.ID) (*bankaccountdomain.BankAccount, error) {
	return s.repo.FindActive(ctx, s.db, entityID)
}

func (s *staticBankAccounts) List(ctx context.Context, entityID snowflake.ID) ([]bankaccountdomain.BankAccount, error) {
	return s.repo.List(ctx, s.db, entityID)
}

func (f *fixture) createEntity(t *testing.T) *entitydomain.Entity {
	t.Helper()
	now := f.clock.Now()
	id := f.node.Generate()
	phone := fmt.Sprintf("0803%07d", id%10000000)
	entity := entitydomain.Entity{
		ID:                 id,
		Name:               "Ada Stores",
		Slug:               fmt.Sprintf("ada-stores-%d", id),
		Email:              fmt.Sprintf("owner-%d@example.com", id),
		Phone:              &phone,
		PasswordHash:       "x",
		BusinessType:       entitydomain.BusinessRetail,
		VATRate:            decimal.RequireFromString("7.5"),
		SubscriptionStatus: entitydomain.StatusInactive,
		TeamMembersCount:   1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, entityrepo.Provide().Insert(context.Background(), f.db, &entity))
	return &entity
}

func (f *fixture) createCustomer(t *testing.T, entityID snowflake.ID) *customerdomain.Customer {
	t.Helper()
	customer, err := f.customer.Create(context.Background(), entityID, customerdomain.CreateCustomerRequest{
		Name:  "Chidi Okeke",
		Email: "chidi@example.com",
		Phone: "08031234567",
	})
	require.NoError(t, err)
	return customer
}

func (f *fixture) createInvoice(t *testing.T, entityID, customerID snowflake.ID, unitPrice string) *invoicedomain.Detail {
	t.Helper()
	detail, err := f.svc.Create(context.Background(), entityID, invoicedomain.CreateInvoiceRequest{
		CustomerID: customerID.String(),
		Items: []invoicedomain.ItemRequest{
			{Name: "Consulting", Quantity: 1, UnitPrice: decimal.RequireFromString(unitPrice)},
		},
		TaxRate: ptrDecimal(decimal.Zero),
	})
	require.NoError(t, err)
	return detail
}

func (f *fixture) setCounter(t *testing.T, entityID snowflake.ID, column string, value int64) {
	t.Helper()
	require.NoError(t, f.db.Exec("UPDATE entities SET "+column+" = ? WHERE id = ?", value, entityID).Error)
}

func (f *fixture) counters(t *testing.T, entityID snowflake.ID) *entitydomain.Counters {
	t.Helper()
	counters, err := entityrepo.Provide().GetCounters(context.Background(), f.db, entityID)
	require.NoError(t, err)
	return counters
}

func (f *fixture) pendingPayment(t *testing.T, invoice *invoicedomain.Detail, amount string) string {
	t.Helper()
	reference := paymentdomain.UniqueReference(paymentdomain.PrefixInvoice, f.clock.Now())
	f.clock.Advance(time.Millisecond)
	_, err := f.ledger.CreatePending(context.Background(), nil, paymentdomain.CreatePendingRequest{
		EntityID:  invoice.EntityID,
		InvoiceID: &invoice.ID,
		Amount:    decimal.RequireFromString(amount),
		Currency:  invoice.Currency,
		Reference: reference,
		Metadata: paymentdomain.NewInvoicePayment(paymentdomain.InvoicePayment{
			EntityID:  invoice.EntityID.String(),
			InvoiceID: invoice.ID.String(),
		}),
	})
	require.NoError(t, err)
	return reference
}

func (f *fixture) reloadInvoice(t *testing.T, invoice *invoicedomain.Detail) *invoicedomain.Invoice {
	t.Helper()
	item, err := invoicerepo.Provide().FindByID(context.Background(), f.db, invoice.EntityID, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item
}

func ptrDecimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	due := f.clock.Now().AddDate(0, 0, 14)

	detail, err := f.svc.Create(context.Background(), entity.ID, invoicedomain.CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items: []invoicedomain.ItemRequest{
			{Name: "Rice", Description: "50kg bag", Quantity: 2, UnitPrice: decimal.NewFromInt(5000)},
			{Name: "Delivery", UnitPrice: decimal.NewFromInt(2500)},
		},
		DueDate: &due,
		Notes:   "Thanks",
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-202503-00001", detail.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, detail.Status)
	assert.Equal(t, invoicedomain.CurrencyNGN, detail.Currency)
	assert.True(t, detail.Subtotal.Equal(decimal.NewFromInt(12500)))
	assert.True(t, detail.TaxRate.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, detail.Tax.Equal(decimal.RequireFromString("937.5")))
	assert.True(t, detail.Total.Equal(decimal.RequireFromString("13437.5")))
	require.Len(t, detail.Items, 2)
	assert.Equal(t, int64(1), detail.Items[1].Quantity)
	assert.Equal(t, customer.ID, detail.Customer.ID)

	assert.Equal(t, int64(1), f.counters(t, entity.ID).InvoicesCreated)

	loaded, err := f.svc.GetByID(context.Background(), entity.ID, detail.ID.String())
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "Rice", loaded.Items[0].Name)
	assert.True(t, loaded.Items[0].Amount.Equal(decimal.NewFromInt(10000)))

	second := f.createInvoice(t, entity.ID, customer.ID, "100")
	assert.Equal(t, "INV-202503-00002", second.InvoiceNumber)
}

func TestCreateWithInlineCustomerConsumesBothEntitlements(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)

	detail, err := f.svc.Create(context.Background(), entity.ID, invoicedomain.CreateInvoiceRequest{
		Customer: &customerdomain.CreateCustomerRequest{Name: "Ngozi", Email: "ngozi@example.com"},
		Currency: "usd",
		Items:    []invoicedomain.ItemRequest{{Name: "Design", UnitPrice: decimal.NewFromInt(300)}},
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.CurrencyUSD, detail.Currency)
	assert.Equal(t, "Ngozi", detail.Customer.Name)

	counters := f.counters(t, entity.ID)
	assert.Equal(t, int64(1), counters.InvoicesCreated)
	assert.Equal(t, int64(1), counters.CustomersCreated)
}

func TestCreateRejectedAtInvoiceLimit(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	f.setCounter(t, entity.ID, "invoices_created", 10)

	_, err := f.svc.Create(context.Background(), entity.ID, invoicedomain.CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []invoicedomain.ItemRequest{{Name: "Rice", UnitPrice: decimal.NewFromInt(5000)}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entitlementdomain.ErrLimitExceeded))

	var limitErr *entitlementdomain.LimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, int64(10), limitErr.Limit)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, int64(10), f.counters(t, entity.ID).InvoicesCreated)
}

func TestCreateRollsBackWhenInlineCustomerIsOverLimit(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	f.setCounter(t, entity.ID, "customers_created", 5)

	_, err := f.svc.Create(context.Background(), entity.ID, invoicedomain.CreateInvoiceRequest{
		Customer: &customerdomain.CreateCustomerRequest{Name: "Ngozi"},
		Items:    []invoicedomain.ItemRequest{{Name: "Design", UnitPrice: decimal.NewFromInt(300)}},
	})
	assert.ErrorIs(t, err, entitlementdomain.ErrLimitExceeded)

	counters := f.counters(t, entity.ID)
	assert.Zero(t, counters.InvoicesCreated)
	assert.Equal(t, int64(5), counters.CustomersCreated)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	ctx := context.Background()
	items := []invoicedomain.ItemRequest{{Name: "Rice", UnitPrice: decimal.NewFromInt(10)}}

	_, err := f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{Items: items})
	assert.ErrorIs(t, err, invoicedomain.ErrCustomerRequired)

	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{CustomerID: customer.ID.String()})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidItems)

	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []invoicedomain.ItemRequest{{Name: "Rice", UnitPrice: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidItems)

	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{CustomerID: customer.ID.String(), Currency: "GHS", Items: items})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidCurrency)

	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{CustomerID: customer.ID.String(), TaxRate: ptrDecimal(decimal.NewFromInt(101)), Items: items})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTaxRate)

	past := f.clock.Now().AddDate(0, 0, -1)
	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{CustomerID: customer.ID.String(), DueDate: &past, Items: items})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidDueDate)

	_, err = f.svc.Create(ctx, entity.ID, invoicedomain.CreateInvoiceRequest{CustomerID: f.node.Generate().String(), Items: items})
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)

	assert.Zero(t, f.counters(t, entity.ID).InvoicesCreated)
}

func TestApplyPaymentSetsStatusFromAmount(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	full := f.pendingPayment(t, invoice, "5000")
	applied, err := f.svc.ApplyPayment(ctx, full)
	require.NoError(t, err)
	assert.True(t, applied.Applied)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, applied.Status)

	stored := f.reloadInvoice(t, invoice)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	partial := f.pendingPayment(t, invoice, "3000")
	applied, err = f.svc.ApplyPayment(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, applied.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, f.reloadInvoice(t, invoice).Status)

	txn, err := f.ledger.GetByReference(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, txn.Status)
}

func TestApplyPaymentOverpaymentMarksPaid(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")

	applied, err := f.svc.ApplyPayment(context.Background(), f.pendingPayment(t, invoice, "5000.01"))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, applied.Status)
}

func TestApplyPaymentReplayIsNoop(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	reference := f.pendingPayment(t, invoice, "3000")
	first, err := f.svc.ApplyPayment(ctx, reference)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := f.svc.ApplyPayment(ctx, reference)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, second.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, f.reloadInvoice(t, invoice).Status)
}

func TestApplyPaymentRejectsOtherPurposes(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	ctx := context.Background()

	reference := paymentdomain.EntityReference(paymentdomain.PrefixCharge, entity.ID.String(), f.clock.Now())
	_, err := f.ledger.CreatePending(ctx, nil, paymentdomain.CreatePendingRequest{
		EntityID:  entity.ID,
		Amount:    decimal.NewFromInt(2000),
		Reference: reference,
		Metadata:  paymentdomain.NewSubscriptionUpgrade(entity.ID.String(), plandomain.PlanBasic),
	})
	require.NoError(t, err)

	_, err = f.svc.ApplyPayment(ctx, reference)
	assert.ErrorIs(t, err, invoicedomain.ErrNotInvoicePayment)

	_, err = f.svc.ApplyPayment(ctx, "INV_missing")
	assert.ErrorIs(t, err, paymentdomain.ErrTransactionNotFound)
}

func TestInitiatePaymentOpensHostedPage(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	now := f.clock.Now()
	require.NoError(t, bankaccountrepo.Provide().Insert(ctx, f.db, &bankaccountdomain.BankAccount{
		ID:               f.node.Generate(),
		EntityID:         entity.ID,
		BankCode:         "058",
		AccountNumber:    "0123456789",
		SubaccountCode:   "ACCT_ada",
		PercentageCharge: decimal.RequireFromString("0.3"),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}))

	f.gateway.EXPECT().
		InitializeTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
			assert.Equal(t, "chidi@example.com", req.Email)
			assert.Equal(t, int64(500000), req.AmountKobo)
			assert.Equal(t, "ACCT_ada", req.Subaccount)
			assert.Equal(t, "https://app.example.com/paid", req.CallbackURL)
			assert.True(t, strings.HasPrefix(req.Reference, "INV_"))
			assert.Equal(t, "invoice_payment", req.Metadata["purpose"])
			assert.Equal(t, invoice.ID.String(), req.Metadata["invoice_id"])
			assert.NotEmpty(t, req.Metadata["transaction_id"])
			return &paystack.InitializeResult{
				Success:    true,
				PaymentURL: "https://checkout.paystack.com/abc",
				AccessCode: "abc",
				Reference:  req.Reference,
			}, nil
		})

	session, err := f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{})
	require.NoError(t, err)
	assert.True(t, session.Success)
	assert.Equal(t, "https://checkout.paystack.com/abc", session.PaymentURL)

	txn, err := f.ledger.GetByReference(ctx, session.Reference)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, txn.Status)
	assert.Equal(t, paymentdomain.PurposeInvoicePayment, txn.Purpose)
	require.NotNil(t, txn.InvoiceID)
	assert.Equal(t, invoice.ID, *txn.InvoiceID)

	assert.Equal(t, "https://checkout.paystack.com/abc", f.reloadInvoice(t, invoice).PaymentLink)
}

func TestInitiatePaymentGuards(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	_, err := f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{
		Amount: ptrDecimal(decimal.NewFromInt(6000)),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrAmountExceedsTotal)

	_, err = f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{
		Amount: ptrDecimal(decimal.Zero),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaymentAmount)

	_, err = f.svc.ApplyPayment(ctx, f.pendingPayment(t, invoice, "5000"))
	require.NoError(t, err)
	_, err = f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceAlreadyPaid)

	_, err = f.svc.InitiatePayment(ctx, entity.ID, "not-an-id", invoicedomain.InitiatePaymentRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestInitiatePaymentOutcomes(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	var references []string
	capture := func(_ context.Context, req paystack.InitializeRequest) {
		references = append(references, req.Reference)
	}
	gomock.InOrder(
		f.gateway.EXPECT().InitializeTransaction(gomock.Any(), gomock.Any()).Do(capture).
			Return(nil, paystack.ErrUpstreamUnavailable),
		f.gateway.EXPECT().InitializeTransaction(gomock.Any(), gomock.Any()).Do(capture).
			Return(&paystack.InitializeResult{Success: false, Message: "Invalid email"}, nil),
	)

	_, err := f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{Amount: ptrDecimal(decimal.NewFromInt(2000))})
	assert.ErrorIs(t, err, paystack.ErrUpstreamUnavailable)

	f.clock.Advance(time.Second)
	session, err := f.svc.InitiatePayment(ctx, entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{Amount: ptrDecimal(decimal.NewFromInt(2000))})
	require.NoError(t, err)
	assert.False(t, session.Success)
	assert.Equal(t, "Invalid email", session.Message)

	require.Len(t, references, 2)
	pending, err := f.ledger.GetByReference(ctx, references[0])
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, pending.Status)

	failed, err := f.ledger.GetByReference(ctx, references[1])
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, failed.Status)
	assert.Equal(t, "Invalid email", failed.FailureReason)
}

func TestInitiatePaymentRequiresEmail(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer, err := f.customer.Create(context.Background(), entity.ID, customerdomain.CreateCustomerRequest{Name: "Walk-in"})
	require.NoError(t, err)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")

	_, err = f.svc.InitiatePayment(context.Background(), entity.ID, invoice.ID.String(), invoicedomain.InitiatePaymentRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrCustomerEmailRequired)
}

func TestShareViaWhatsApp(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")

	res, err := f.svc.ShareViaWhatsApp(context.Background(), entity.ID, invoice.ID.String(), invoicedomain.ShareRequest{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "msg_1", res.MessageID)
	assert.Equal(t, "+2348031234567", f.sender.phone)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0], invoice.InvoiceNumber)
	assert.Contains(t, f.sender.sent[0], "₦5,000.00")

	stored := f.reloadInvoice(t, invoice)
	assert.True(t, stored.WhatsAppShared)
	assert.Equal(t, "msg_1", stored.WhatsAppMessageID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, stored.Status)
}

func TestShareViaWhatsAppFallsBackToLink(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	f.sender.err = whatsapp.ErrNotConfigured

	res, err := f.svc.ShareViaWhatsApp(context.Background(), entity.ID, invoice.ID.String(), invoicedomain.ShareRequest{Phone: "2348099999999"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.WhatsAppLink, "https://wa.me/?text="))
	assert.Equal(t, "+2348099999999", res.Phone)

	stored := f.reloadInvoice(t, invoice)
	assert.False(t, stored.WhatsAppShared)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, stored.Status)
}

func TestShareViaWhatsAppRequiresPhone(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer, err := f.customer.Create(context.Background(), entity.ID, customerdomain.CreateCustomerRequest{Name: "Walk-in"})
	require.NoError(t, err)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")

	_, err = f.svc.ShareViaWhatsApp(context.Background(), entity.ID, invoice.ID.String(), invoicedomain.ShareRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrPhoneRequired)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")

	out, filename, err := f.svc.RenderPDF(context.Background(), entity.ID, invoice.ID.String())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
	assert.Equal(t, "ada-stores-INV-202503-00001.pdf", filename)
}

func TestPaymentQR(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	invoice := f.createInvoice(t, entity.ID, customer.ID, "5000")
	ctx := context.Background()

	_, err := f.svc.PaymentQR(ctx, entity.ID, invoice.ID.String(), 0)
	assert.ErrorIs(t, err, invoicedomain.ErrPaymentLinkMissing)

	require.NoError(t, f.db.Exec(`UPDATE invoices SET payment_link = ? WHERE id = ?`, "https://checkout.paystack.com/abc", invoice.ID).Error)
	out, err := f.svc.PaymentQR(ctx, entity.ID, invoice.ID.String(), 128)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "\x89PNG"))

	require.NoError(t, f.db.Exec(`UPDATE invoices SET status = ? WHERE id = ?`, string(invoicedomain.InvoiceStatusPaid), invoice.ID).Error)
	_, err = f.svc.PaymentQR(ctx, entity.ID, invoice.ID.String(), 128)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceAlreadyPaid)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	ctx := context.Background()

	var created []*invoicedomain.Detail
	for i := 0; i < 3; i++ {
		created = append(created, f.createInvoice(t, entity.ID, customer.ID, "1000"))
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.ApplyPayment(ctx, f.pendingPayment(t, created[0], "1000"))
	require.NoError(t, err)

	first, err := f.svc.List(ctx, entity.ID, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, first.Invoices, 3)
	assert.Equal(t, created[2].ID, first.Invoices[0].ID)
	assert.Len(t, first.Invoices[0].Items, 1)

	paid, err := f.svc.List(ctx, entity.ID, invoicedomain.ListInvoiceRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, paid.Invoices, 1)
	assert.Equal(t, created[0].ID, paid.Invoices[0].ID)

	page := invoicedomain.ListInvoiceRequest{}
	page.PageSize = 2
	one, err := f.svc.List(ctx, entity.ID, page)
	require.NoError(t, err)
	require.Len(t, one.Invoices, 2)
	require.True(t, one.HasMore)

	page.PageToken = one.NextPageToken
	two, err := f.svc.List(ctx, entity.ID, page)
	require.NoError(t, err)
	require.Len(t, two.Invoices, 1)
	assert.False(t, two.HasMore)
	assert.Equal(t, created[0].ID, two.Invoices[0].ID)

	_, err = f.svc.List(ctx, entity.ID, invoicedomain.ListInvoiceRequest{Status: "void"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatusFilter)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	entity := f.createEntity(t)
	customer := f.createCustomer(t, entity.ID)
	due := f.clock.Now().AddDate(0, 0, 7)

	detail, err := f.svc.Create(context.Background(), entity.ID, invoicedomain.CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Items:      []invoicedomain.ItemRequest{{Name: "Rice", UnitPrice: decimal.NewFromInt(5000)}},
		DueDate:    &due,
	})
	require.NoError(t, err)
	_, err = f.svc.ShareViaWhatsApp(context.Background(), entity.ID, detail.ID.String(), invoicedomain.ShareRequest{})
	require.NoError(t, err)

	count, err := f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	f.clock.Advance(8 * 24 * time.Hour)
	count, err = f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, f.reloadInvoice(t, detail).Status)
}
