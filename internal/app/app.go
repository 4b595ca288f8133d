package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/auth"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount"
	"github.com/smallbiznis/invoicepadi/internal/card"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	"github.com/smallbiznis/invoicepadi/internal/customer"
	"github.com/smallbiznis/invoicepadi/internal/entitlement"
	"github.com/smallbiznis/invoicepadi/internal/entity"
	"github.com/smallbiznis/invoicepadi/internal/invoice"
	"github.com/smallbiznis/invoicepadi/internal/migration"
	"github.com/smallbiznis/invoicepadi/internal/observability"
	"github.com/smallbiznis/invoicepadi/internal/payment"
	"github.com/smallbiznis/invoicepadi/internal/plan"
	"github.com/smallbiznis/invoicepadi/internal/providers"
	"github.com/smallbiznis/invoicepadi/internal/ratelimit"
	"github.com/smallbiznis/invoicepadi/internal/scheduler"
	"github.com/smallbiznis/invoicepadi/internal/server"
	"github.com/smallbiznis/invoicepadi/internal/subscription"
	"github.com/smallbiznis/invoicepadi/pkg/db"
	"go.uber.org/fx"
)

// Core wires infrastructure and every domain service. The HTTP server and
// the scheduler each decide from APP_MODE whether to start.
var Core = fx.Options(
	// Infrastructure
	config.Module,
	observability.Module,
	fx.Provide(RegisterSnowflake),
	db.Module,
	clock.Module,
	ratelimit.Module,
	providers.Module,

	// Domains
	plan.Module,
	entity.Module,
	entitlement.Module,
	customer.Module,
	card.Module,
	bankaccount.Module,
	payment.Module,
	invoice.Module,
	subscription.Module,
	auth.Module,

	// Schema and catalog run before anything serves traffic.
	migration.Module,

	server.Module,
	scheduler.Module,
)

// WithMode pins APP_MODE regardless of the environment.
func WithMode(mode string) fx.Option {
	return fx.Decorate(func(cfg config.Config) config.Config {
		cfg.Mode = mode
		return cfg
	})
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
