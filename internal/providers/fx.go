package providers

import (
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/smallbiznis/invoicepadi/internal/providers/pdf"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	paystack.Module,
	whatsapp.Module,
	pdf.Module,
)
