package main

import (
	"github.com/smallbiznis/invoicepadi/internal/app"
	"go.uber.org/fx"
)

func main() {
	fx.New(app.Core).Run()
}
