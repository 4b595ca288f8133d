package main

import (
	"github.com/smallbiznis/invoicepadi/internal/app"
	"github.com/smallbiznis/invoicepadi/internal/config"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.Core,
		app.WithMode(config.ModeAPI),
	).Run()
}
