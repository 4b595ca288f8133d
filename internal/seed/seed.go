package seed

import (
	"context"
	"errors"

	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsurePlanCatalog seeds the built-in plans when the catalog is empty, or
// always when force is set.
func EnsurePlanCatalog(ctx context.Context, db *gorm.DB, planSvc plandomain.Service, force bool, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if planSvc == nil {
		return errors.New("seed plan service is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if !force {
		count, err := countPlans(ctx, db)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}

	plans, err := planSvc.Reseed(ctx, plandomain.DefaultDefinitions())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(plans))
	for _, plan := range plans {
		names = append(names, plan.Name)
	}
	log.Info("plan catalog seeded", zap.Strings("plans", names), zap.Bool("forced", force))
	return nil
}

func countPlans(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM plans`).Scan(&count).Error
	return count, err
}
