package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/repository"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	entityrepo "github.com/smallbiznis/invoicepadi/internal/entity/repository"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&entitydomain.Entity{}, &domain.BankAccount{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestService(t *testing.T) (*Service, *mock.MockClient, *gorm.DB, snowflake.ID) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	gateway := mock.NewMockClient(gomock.NewController(t))

	entity := entitydomain.Entity{
		ID:                 node.Generate(),
		Name:               "Ada Stores",
		Slug:               "ada-stores",
		Email:              "ada@example.com",
		PasswordHash:       "x",
		BusinessType:       entitydomain.BusinessRetail,
		VATRate:            decimal.RequireFromString("7.5"),
		SubscriptionStatus: entitydomain.StatusInactive,
		TeamMembersCount:   1,
		CreatedAt:          clk.Now(),
		UpdatedAt:          clk.Now(),
	}
	require.NoError(t, entityrepo.Provide().Insert(context.Background(), db, &entity))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       repository.Provide(),
		EntityRepo: entityrepo.Provide(),
		Gateway:    gateway,
		Billing:    config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	}).(*Service)
	return svc, gateway, db, entity.ID
}

func TestAddCreatesSubaccount(t *testing.T) {
	svc, gateway, _, entityID := newTestService(t)
	ctx := context.Background()

	gateway.EXPECT().
		CreateSubaccount(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req paystack.SubaccountRequest) (*paystack.SubaccountResult, error) {
			assert.Equal(t, "Ada Stores", req.BusinessName)
			assert.Equal(t, "058", req.SettlementBank)
			assert.Equal(t, "0123456789", req.AccountNumber)
			assert.Equal(t, 0.3, req.PercentageCharge)
			return &paystack.SubaccountResult{
				Success:        true,
				SubaccountCode: "ACCT_first",
				SettlementBank: "Guaranty Trust Bank",
				AccountName:    "ADA STORES LTD",
			}, nil
		})

	account, err := svc.Add(ctx, entityID, domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "0123456789"})
	require.NoError(t, err)
	assert.Equal(t, "ACCT_first", account.SubaccountCode)
	assert.Equal(t, "Guaranty Trust Bank", account.BankName)
	assert.Equal(t, "ADA STORES LTD", account.AccountName)
	assert.True(t, account.PercentageCharge.Equal(decimal.RequireFromString("0.3")))

	active, err := svc.Active(ctx, entityID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, account.ID, active.ID)
}

func TestAddReplacesActiveAccount(t *testing.T) {
	svc, gateway, _, entityID := newTestService(t)
	ctx := context.Background()

	gomock.InOrder(
		gateway.EXPECT().CreateSubaccount(gomock.Any(), gomock.Any()).
			Return(&paystack.SubaccountResult{Success: true, SubaccountCode: "ACCT_first"}, nil),
		gateway.EXPECT().CreateSubaccount(gomock.Any(), gomock.Any()).
			Return(&paystack.SubaccountResult{Success: true, SubaccountCode: "ACCT_second"}, nil),
	)

	_, err := svc.Add(ctx, entityID, domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "0123456789"})
	require.NoError(t, err)
	second, err := svc.Add(ctx, entityID, domain.AddBankAccountRequest{BankCode: "044", AccountNumber: "9876543210"})
	require.NoError(t, err)

	active, err := svc.Active(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	all, err := svc.List(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	activeCount := 0
	for _, a := range all {
		if a.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestAddRejected(t *testing.T) {
	svc, gateway, db, entityID := newTestService(t)

	gateway.EXPECT().CreateSubaccount(gomock.Any(), gomock.Any()).
		Return(&paystack.SubaccountResult{Success: false, Message: "Account details are invalid"}, nil)

	_, err := svc.Add(context.Background(), entityID, domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "0123456789"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSubaccountRejected))
	assert.Contains(t, err.Error(), "Account details are invalid")

	var count int64
	require.NoError(t, db.Model(&domain.BankAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddGatewayUnavailable(t *testing.T) {
	svc, gateway, _, entityID := newTestService(t)

	gateway.EXPECT().CreateSubaccount(gomock.Any(), gomock.Any()).
		Return(nil, paystack.ErrUpstreamUnavailable)

	_, err := svc.Add(context.Background(), entityID, domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "0123456789"})
	assert.ErrorIs(t, err, paystack.ErrUpstreamUnavailable)
}

func TestAddValidation(t *testing.T) {
	svc, _, _, entityID := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, entityID, domain.AddBankAccountRequest{AccountNumber: "0123456789"})
	assert.ErrorIs(t, err, domain.ErrInvalidBankCode)

	_, err = svc.Add(ctx, entityID, domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "12345"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccountNumber)

	_, err = svc.Add(ctx, snowflake.ID(42), domain.AddBankAccountRequest{BankCode: "058", AccountNumber: "0123456789"})
	assert.ErrorIs(t, err, entitydomain.ErrEntityNotFound)
}

func TestActiveWithoutAccount(t *testing.T) {
	svc, _, _, entityID := newTestService(t)

	active, err := svc.Active(context.Background(), entityID)
	require.NoError(t, err)
	assert.Nil(t, active)
}
