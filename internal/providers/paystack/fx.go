package paystack

import "go.uber.org/fx"

var Module = fx.Module("paystack.client",
	fx.Provide(NewClient),
)
