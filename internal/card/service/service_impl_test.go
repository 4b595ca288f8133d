package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	cardrepo "github.com/smallbiznis/invoicepadi/internal/card/repository"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	entityrepo "github.com/smallbiznis/invoicepadi/internal/entity/repository"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	charges   []paystack.ChargeRequest
	inits     []paystack.InitializeRequest
	chargeRes *paystack.ChargeResult
	chargeErr error
	initRes   *paystack.InitializeResult
	verify    map[string]*paystack.Transaction
}

func (g *fakeGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, req)
	if g.initRes != nil {
		return g.initRes, nil
	}
	return &paystack.InitializeResult{Success: true, PaymentURL: "https://checkout.paystack.com/x", Reference: req.Reference}, nil
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	if tx, ok := g.verify[reference]; ok {
		return tx, nil
	}
	return nil, &paystack.APIError{StatusCode: 400, Message: "Transaction reference not found"}
}

func (g *fakeGateway) ChargeAuthorization(ctx context.Context, req paystack.ChargeRequest) (*paystack.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	if g.chargeRes != nil {
		return g.chargeRes, nil
	}
	return &paystack.ChargeResult{Success: true, Status: paystack.StatusSuccess, Reference: req.Reference}, nil
}

func (g *fakeGateway) CreateSubaccount(ctx context.Context, req paystack.SubaccountRequest) (*paystack.SubaccountResult, error) {
	return &paystack.SubaccountResult{Success: true}, nil
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	gateway *fakeGateway
	node    *snowflake.Node
	clock   *clock.FakeClock
}

func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&entitydomain.Entity{}, &carddomain.Card{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{verify: map[string]*paystack.Transaction{}}

	svc := NewService(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       cardrepo.Provide(),
		EntityRepo: entityrepo.Provide(),
		Gateway:    gateway,
		Billing:    config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	}).(*Service)

	return &fixture{db: db, svc: svc, gateway: gateway, node: node, clock: clk}
}

func (f *fixture) createEntity(t *testing.T) snowflake.ID {
	t.Helper()
	now := f.clock.Now()
	entity := entitydomain.Entity{
		ID:                 f.node.Generate(),
		Name:               "Ada Stores",
		Slug:               "ada-stores",
		Email:              fmt.Sprintf("owner-%d@example.com", f.node.Generate()),
		PasswordHash:       "x",
		BusinessType:       entitydomain.BusinessRetail,
		VATRate:            decimal.RequireFromString("7.5"),
		SubscriptionStatus: entitydomain.StatusInactive,
		TeamMembersCount:   1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, entityrepo.Provide().Insert(context.Background(), f.db, &entity))
	return entity.ID
}

func authorization(code, last4 string) carddomain.Authorization {
	return carddomain.Authorization{
		AuthorizationCode: code,
		CardType:          "visa",
		Last4:             last4,
		ExpMonth:          "12",
		ExpYear:           "2030",
		Bank:              "Test Bank",
		Brand:             "visa",
		Reusable:          true,
	}
}

func (f *fixture) defaults(t *testing.T, entityID snowflake.ID) int {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM cards WHERE entity_id = ? AND is_default = TRUE AND is_active = TRUE`, entityID).Scan(&count).Error)
	return int(count)
}

func TestSaveCard_FirstCardBecomesDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	first, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.True(t, first.Card.IsDefault)

	second, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_2", "1111"))
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.False(t, second.Card.IsDefault)
	assert.Equal(t, 1, f.defaults(t, entityID))
}

func TestSaveCard_IdempotentByAuthorizationCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	first, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)
	require.True(t, first.Success)

	again, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, carddomain.MessageAlreadySaved, again.Message)

	cards, err := f.svc.ListCards(ctx, entityID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSaveCard_RejectsEmptyAuthorization(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SaveCardFromAuthorization(context.Background(), f.createEntity(t), carddomain.Authorization{})
	assert.ErrorIs(t, err, carddomain.ErrInvalidAuthorization)
}

func TestSetDefault_KeepsSingleDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	_, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)
	second, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_2", "1111"))
	require.NoError(t, err)

	card, err := f.svc.SetDefault(ctx, entityID, second.Card.ID)
	require.NoError(t, err)
	assert.True(t, card.IsDefault)
	assert.Equal(t, 1, f.defaults(t, entityID))

	readiness, err := f.svc.PaymentReadiness(ctx, entityID)
	require.NoError(t, err)
	require.NotNil(t, readiness.DefaultCard)
	assert.Equal(t, second.Card.ID, readiness.DefaultCard.ID)
	assert.Equal(t, 2, readiness.TotalCards)
}

func TestSetDefault_OtherEntitiesCardIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createEntity(t)
	other := f.createEntity(t)

	saved, err := f.svc.SaveCardFromAuthorization(ctx, owner, authorization("AUTH_1", "4081"))
	require.NoError(t, err)

	_, err = f.svc.SetDefault(ctx, other, saved.Card.ID)
	assert.ErrorIs(t, err, carddomain.ErrCardNotFound)
	assert.ErrorIs(t, f.svc.Deactivate(ctx, other, saved.Card.ID), carddomain.ErrCardNotFound)
}

func TestDeactivateDefault_PromotesRemainingCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	first, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_2", "1111"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, entityID, first.Card.ID))

	cards, err := f.svc.ListCards(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, second.Card.ID, cards[0].ID)
	assert.True(t, cards[0].IsDefault)

	require.NoError(t, f.svc.Deactivate(ctx, entityID, second.Card.ID))
	readiness, err := f.svc.PaymentReadiness(ctx, entityID)
	require.NoError(t, err)
	assert.False(t, readiness.HasCards)
	assert.Nil(t, readiness.DefaultCard)
}

func TestConcurrentSaves_SingleDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	// sqlite serializes writers; one connection keeps the goroutines queued
	// instead of failing with table locks.
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.svc.SaveCardFromAuthorization(ctx, entityID, authorization(fmt.Sprintf("AUTH_%d", i), "4081"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.defaults(t, entityID))
}

func TestChargeDefaultOrSpecific(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	t.Run("no card", func(t *testing.T) {
		res, err := f.svc.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{EntityID: entityID, Amount: decimal.NewFromInt(2000), Email: "a@b.ng"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, carddomain.MessageNoDefaultCard, res.Message)
		assert.Empty(t, f.gateway.charges)
	})

	saved, err := f.svc.SaveCardFromAuthorization(ctx, entityID, authorization("AUTH_1", "4081"))
	require.NoError(t, err)

	t.Run("default card charged in kobo", func(t *testing.T) {
		res, err := f.svc.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{EntityID: entityID, Amount: decimal.NewFromInt(2000), Email: "a@b.ng", Description: "Basic plan"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.NotNil(t, res.Card)
		assert.Equal(t, "4081", res.Card.Last4)
		assert.True(t, strings.HasPrefix(res.Reference, "CHARGE_"+entityID.String()+"_"))
		last := f.gateway.charges[len(f.gateway.charges)-1]
		assert.EqualValues(t, 200000, last.AmountKobo)
		assert.Equal(t, "AUTH_1", last.AuthorizationCode)
	})

	t.Run("unknown specific card", func(t *testing.T) {
		missing := f.node.Generate()
		res, err := f.svc.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{EntityID: entityID, CardID: &missing, Amount: decimal.NewFromInt(1), Email: "a@b.ng"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, carddomain.MessageCardNotFound, res.Message)
	})

	t.Run("decline carries gateway message", func(t *testing.T) {
		f.gateway.chargeRes = &paystack.ChargeResult{Success: false, Status: paystack.StatusFailed, Message: "Insufficient Funds"}
		defer func() { f.gateway.chargeRes = nil }()

		res, err := f.svc.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{EntityID: entityID, CardID: &saved.Card.ID, Amount: decimal.NewFromInt(2000), Email: "a@b.ng"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Insufficient Funds", res.Message)
	})

	t.Run("timeout is an error", func(t *testing.T) {
		f.gateway.chargeErr = paystack.ErrUpstreamUnavailable
		defer func() { f.gateway.chargeErr = nil }()

		_, err := f.svc.ChargeDefaultOrSpecific(ctx, carddomain.ChargeRequest{EntityID: entityID, Amount: decimal.NewFromInt(2000), Email: "a@b.ng"})
		assert.ErrorIs(t, err, paystack.ErrUpstreamUnavailable)
	})
}

func TestInitializeCardSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	session, err := f.svc.InitializeCardSave(ctx, entityID, "owner@shop.ng", "https://app/cards/callback")
	require.NoError(t, err)
	assert.True(t, session.Success)
	assert.True(t, strings.HasPrefix(session.Reference, "CARD_SAVE_"+entityID.String()+"_"))

	req := f.gateway.inits[0]
	assert.EqualValues(t, 100, req.AmountKobo)
	assert.Equal(t, []string{"card"}, req.Channels)
	assert.Equal(t, "card_verification", req.Metadata["purpose"])
	assert.Equal(t, entityID.String(), req.Metadata["entity_id"])

	f.gateway.initRes = &paystack.InitializeResult{Success: false, Message: "Invalid key"}
	failed, err := f.svc.InitializeCardSave(ctx, entityID, "owner@shop.ng", "")
	require.NoError(t, err)
	assert.False(t, failed.Success)
	assert.Equal(t, "Invalid key", failed.Message)
}

func TestVerifyAndSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entityID := f.createEntity(t)

	f.gateway.verify["CARD_SAVE_1"] = &paystack.Transaction{
		Status:        paystack.StatusSuccess,
		Reference:     "CARD_SAVE_1",
		Metadata:      []byte(fmt.Sprintf(`{"purpose":"card_verification","entity_id":"%s"}`, entityID)),
		Authorization: paystack.Authorization{AuthorizationCode: "AUTH_v", Last4: "4081", CardType: "visa", Brand: "visa"},
	}

	res, err := f.svc.VerifyAndSave(ctx, entityID, "CARD_SAVE_1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	other := f.createEntity(t)
	_, err = f.svc.VerifyAndSave(ctx, other, "CARD_SAVE_1")
	assert.ErrorIs(t, err, carddomain.ErrReferenceEntityMismatch)

	missing, err := f.svc.VerifyAndSave(ctx, entityID, "NOPE")
	require.NoError(t, err)
	assert.False(t, missing.Success)
}
