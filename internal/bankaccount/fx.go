package bankaccount

import (
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/repository"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bankaccount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
