package entity

import (
	"github.com/smallbiznis/invoicepadi/internal/entity/repository"
	"github.com/smallbiznis/invoicepadi/internal/entity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
