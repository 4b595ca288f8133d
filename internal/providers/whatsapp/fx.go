package whatsapp

import "go.uber.org/fx"

var Module = fx.Module("whatsapp.sender",
	fx.Provide(NewSender),
)
