package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicepadi/internal/cache"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"github.com/smallbiznis/invoicepadi/internal/plan/repository"
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
	if err := db.AutoMigrate(&plandomain.Plan{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type countingRepo struct {
	plandomain.Repository
	finds int
}

func (r *countingRepo) FindActiveByName(ctx context.Context, db *gorm.DB, name string) (*plandomain.Plan, error) {
	r.finds++
	return r.Repository.FindActiveByName(ctx, db, name)
}

func newTestService(t *testing.T) (*Service, *countingRepo, *clock.FakeClock) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	repo := &countingRepo{Repository: repository.Provide()}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repo,
		Cache: cache.NewPlanCache(clk),
	}).(*Service)
	return svc, repo, clk
}

func TestReseedCanonicalizesCallerInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	plans, err := svc.Reseed(ctx, []plandomain.Definition{
		{Name: " FREE ", Description: "Start here"},
		{Name: "premium"},
	})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	free, err := svc.GetPlanByName(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, int64(10), free.MaxInvoices)
	assert.Equal(t, int64(5), free.MaxCustomers)
	assert.Equal(t, int64(0), free.Price)
	assert.Equal(t, "Start here", free.Description)
	assert.True(t, free.HasFeature(plandomain.FeatureWhatsAppSharing))
	assert.False(t, free.HasFeature(plandomain.FeatureOnlinePayments))
}

func TestReseedRejectsUnknownPlanName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Reseed(context.Background(), []plandomain.Definition{{Name: "platinum"}})
	require.ErrorIs(t, err, plandomain.ErrInvalidPlanName)
}

func TestReseedReplacesCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reseed(ctx, plandomain.DefaultDefinitions())
	require.NoError(t, err)
	_, err = svc.Reseed(ctx, []plandomain.Definition{{Name: "free"}, {Name: "basic"}})
	require.NoError(t, err)

	plans, err := svc.ListActivePlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	_, err = svc.GetPlanByName(ctx, "enterprise")
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)
}

func TestListActivePlansSortedByPrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reseed(ctx, []plandomain.Definition{
		{Name: "enterprise"}, {Name: "free"}, {Name: "premium"}, {Name: "basic"},
	})
	require.NoError(t, err)

	plans, err := svc.ListActivePlans(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(plans))
	for _, p := range plans {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"free", "basic", "premium", "enterprise"}, names)
}

func TestGetPlanByNameUsesCacheUntilTTL(t *testing.T) {
	svc, repo, clk := newTestService(t)
	ctx := context.Background()
	_, err := svc.Reseed(ctx, plandomain.DefaultDefinitions())
	require.NoError(t, err)

	_, err = svc.GetPlanByName(ctx, "Basic")
	require.NoError(t, err)
	_, err = svc.GetPlanByName(ctx, " basic")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)

	clk.Advance(5 * time.Minute)
	_, err = svc.GetPlanByName(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.finds)

	svc.Invalidate("BASIC")
	_, err = svc.GetPlanByName(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.finds)
}

func TestSetActiveInvalidatesCache(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Reseed(ctx, plandomain.DefaultDefinitions())
	require.NoError(t, err)

	_, err = svc.GetPlanByName(ctx, "premium")
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, "premium", false))
	_, err = svc.GetPlanByName(ctx, "premium")
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)
}

func TestCompareMarksCurrentAndUpgrades(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Reseed(ctx, plandomain.DefaultDefinitions())
	require.NoError(t, err)

	rows, err := svc.Compare(ctx, "basic")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byName := map[string]plandomain.Comparison{}
	for _, row := range rows {
		byName[row.Plan.Name] = row
	}
	assert.True(t, byName["basic"].IsCurrent)
	assert.False(t, byName["free"].IsUpgrade)
	assert.False(t, byName["basic"].IsUpgrade)
	assert.True(t, byName["premium"].IsUpgrade)
	assert.Len(t, byName["enterprise"].Features, len(plandomain.FeatureOrder))
	for _, flag := range byName["enterprise"].Features {
		assert.True(t, flag.Enabled, flag.Name)
	}
}
