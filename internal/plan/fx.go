package plan

import (
	"github.com/smallbiznis/invoicepadi/internal/cache"
	"github.com/smallbiznis/invoicepadi/internal/plan/repository"
	"github.com/smallbiznis/invoicepadi/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.NewPlanCache),
	fx.Provide(service.NewService),
)
