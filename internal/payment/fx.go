package payment

import (
	"github.com/smallbiznis/invoicepadi/internal/payment/adapters"
	"github.com/smallbiznis/invoicepadi/internal/payment/adapters/paystack"
	"github.com/smallbiznis/invoicepadi/internal/payment/repository"
	paymentservice "github.com/smallbiznis/invoicepadi/internal/payment/service"
	"github.com/smallbiznis/invoicepadi/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			paystack.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
