package card

import (
	"github.com/smallbiznis/invoicepadi/internal/card/repository"
	"github.com/smallbiznis/invoicepadi/internal/card/service"
	"go.uber.org/fx"
)

var Module = fx.Module("card.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
