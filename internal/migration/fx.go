package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/invoicepadi/internal/config"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"github.com/smallbiznis/invoicepadi/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, planSvc plandomain.Service, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := migrate(conn, cfg); err != nil {
					return err
				}
				return seed.EnsurePlanCatalog(ctx, conn, planSvc, cfg.PlanReseed, log)
			},
		})
	}),
)

func migrate(conn *gorm.DB, cfg config.Config) error {
	if !strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
