package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
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

type fakePlans struct {
	plandomain.Service
	reseeded [][]plandomain.Definition
}

func (f *fakePlans) Reseed(ctx context.Context, defs []plandomain.Definition) ([]plandomain.Plan, error) {
	f.reseeded = append(f.reseeded, defs)
	plans := make([]plandomain.Plan, 0, len(defs))
	for _, def := range defs {
		plans = append(plans, plandomain.Plan{Name: def.Name})
	}
	return plans, nil
}

func TestEnsurePlanCatalogSeedsEmptyTable(t *testing.T) {
	db := setupTestDB(t)
	plans := &fakePlans{}

	require.NoError(t, EnsurePlanCatalog(context.Background(), db, plans, false, zap.NewNop()))
	require.Len(t, plans.reseeded, 1)
	assert.Equal(t, plandomain.DefaultDefinitions(), plans.reseeded[0])
}

func TestEnsurePlanCatalogKeepsExistingRows(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&plandomain.Plan{
		ID:          1,
		Name:        plandomain.PlanFree,
		DisplayName: "Free",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
	plans := &fakePlans{}

	require.NoError(t, EnsurePlanCatalog(context.Background(), db, plans, false, zap.NewNop()))
	assert.Empty(t, plans.reseeded)

	require.NoError(t, EnsurePlanCatalog(context.Background(), db, plans, true, zap.NewNop()))
	assert.Len(t, plans.reseeded, 1)
}

func TestEnsurePlanCatalogRequiresHandles(t *testing.T) {
	assert.Error(t, EnsurePlanCatalog(context.Background(), nil, &fakePlans{}, false, nil))
	assert.Error(t, EnsurePlanCatalog(context.Background(), setupTestDB(t), nil, false, nil))
}
