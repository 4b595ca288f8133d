package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/customer/domain"
	"github.com/smallbiznis/invoicepadi/internal/customer/repository"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeEntitlements struct {
	entitlementdomain.Service
	reserved int64
	limit    int64
}

func (f *fakeEntitlements) Reserve(_ context.Context, _ *gorm.DB, _ snowflake.ID, resource entitlementdomain.Resource, amount int64) error {
	if f.limit > 0 && f.reserved+amount > f.limit {
		return &entitlementdomain.LimitExceededError{Resource: resource, Plan: "free", Current: f.reserved, Limit: f.limit}
	}
	f.reserved += amount
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Customer{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestService(t *testing.T, ent *fakeEntitlements) (domain.Service, *clock.FakeClock) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:           setupTestDB(t),
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		Entitlements: ent,
	}), clk
}

func TestCreateNormalizesAndReserves(t *testing.T) {
	ent := &fakeEntitlements{}
	svc, _ := newTestService(t, ent)
	ctx := context.Background()

	customer, err := svc.Create(ctx, 7, domain.CreateCustomerRequest{
		Name:  "  Chidi Okafor ",
		Email: " Chidi@Example.com ",
		Phone: "08031234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chidi Okafor", customer.Name)
	assert.Equal(t, "chidi@example.com", customer.Email)
	assert.True(t, strings.HasPrefix(customer.Code, "cus_"))
	assert.Equal(t, int64(1), ent.reserved)

	got, err := svc.GetByID(ctx, 7, customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, customer.Code, got.Code)

	_, err = svc.GetByID(ctx, 8, customer.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	ent := &fakeEntitlements{}
	svc, _ := newTestService(t, ent)
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, domain.CreateCustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, 7, domain.CreateCustomerRequest{Name: "Ada", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.GetByID(ctx, 7, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	assert.Zero(t, ent.reserved)
}

func TestCreateAtLimitInsertsNothing(t *testing.T) {
	ent := &fakeEntitlements{limit: 1}
	svc, _ := newTestService(t, ent)
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, domain.CreateCustomerRequest{Name: "Ada"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 7, domain.CreateCustomerRequest{Name: "Bola"})
	assert.ErrorIs(t, err, entitlementdomain.ErrLimitExceeded)

	resp, err := svc.List(ctx, 7, domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 1)
}

func TestListSearchesAndPaginates(t *testing.T) {
	svc, clk := newTestService(t, &fakeEntitlements{})
	ctx := context.Background()

	for _, name := range []string{"Ada Stores", "Bola Foods", "Chidi Stores"} {
		_, err := svc.Create(ctx, 7, domain.CreateCustomerRequest{Name: name})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	resp, err := svc.List(ctx, 7, domain.ListCustomerRequest{Search: "stores"})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 2)
	assert.Equal(t, "Chidi Stores", resp.Customers[0].Name)

	first, err := svc.List(ctx, 7, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, 7, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "Ada Stores", second.Customers[0].Name)
	assert.False(t, second.HasMore)

	empty, err := svc.List(ctx, 9, domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Customers)
	assert.Empty(t, empty.Customers)
}
