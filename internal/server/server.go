package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/invoicepadi/internal/auth/domain"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	"github.com/smallbiznis/invoicepadi/internal/config"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	"github.com/smallbiznis/invoicepadi/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicepadi/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicepadi/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"github.com/smallbiznis/invoicepadi/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the engine for the lifetime of the app. It is a no-op when
// APP_MODE selects the scheduler only.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	if !cfg.RunsAPI() {
		return
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	authSvc         authdomain.Service
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	cardSvc         carddomain.Service
	customerSvc     customerdomain.Service
	invoiceSvc      invoicedomain.Service
	bankAccountSvc  bankaccountdomain.Service
	webhooks        paymentdomain.WebhookProcessor
	limiter         *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthSvc         authdomain.Service
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	CardSvc         carddomain.Service
	CustomerSvc     customerdomain.Service
	InvoiceSvc      invoicedomain.Service
	BankAccountSvc  bankaccountdomain.Service
	Webhooks        paymentdomain.WebhookProcessor
	Limiter         *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authSvc:         p.AuthSvc,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		cardSvc:         p.CardSvc,
		customerSvc:     p.CustomerSvc,
		invoiceSvc:      p.InvoiceSvc,
		bankAccountSvc:  p.BankAccountSvc,
		webhooks:        p.Webhooks,
		limiter:         p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth", s.RateLimit(ratelimit.EndpointAuth))

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
}

func (s *Server) registerAPIRoutes() {
	s.engine.GET("/api/plans", s.ListPlans)

	api := s.engine.Group("/api", s.AuthRequired(), s.SubscriptionStatus())

	// -------- Subscriptions --------
	api.GET("/subscriptions/current", s.CurrentSubscription)
	api.GET("/subscriptions/compare", s.ComparePlans)
	api.POST("/subscriptions/upgrade", s.RateLimit(ratelimit.EndpointPayment), s.UpgradeSubscriptionWithPayment)
	api.POST("/subscriptions/upgrade/pay", s.RateLimit(ratelimit.EndpointPayment), s.UpgradeSubscriptionWithPayment)
	api.POST("/subscriptions/downgrade", s.DowngradeSubscription)
	api.POST("/subscriptions/renew", s.RateLimit(ratelimit.EndpointPayment), s.RenewSubscription)

	// -------- Cards --------
	api.POST("/cards/initialize", s.RateLimit(ratelimit.EndpointPayment), s.InitializeCardSave)
	api.POST("/cards/verify", s.VerifyCard)
	api.GET("/cards", s.ListCards)
	api.GET("/cards/readiness", s.PaymentReadiness)
	api.PATCH("/cards/:id/default", s.SetDefaultCard)
	api.DELETE("/cards/:id", s.DeactivateCard)

	// -------- Customers --------
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomerByID)

	// -------- Invoices --------
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.RequireFeature(plandomain.FeaturePDFExport), s.DownloadInvoicePDF)
	api.POST("/invoices/:id/share/whatsapp", s.RequireFeature(plandomain.FeatureWhatsAppSharing), s.ShareInvoiceViaWhatsApp)
	api.POST("/invoices/:id/pay", s.RequireFeature(plandomain.FeatureOnlinePayments), s.RateLimit(ratelimit.EndpointPayment), s.InitiateInvoicePayment)
	api.GET("/invoices/:id/payment-qr", s.RequireFeature(plandomain.FeatureOnlinePayments), s.InvoicePaymentQR)

	// -------- Bank accounts --------
	api.POST("/bank-accounts", s.AddBankAccount)
	api.GET("/bank-accounts", s.ListBankAccounts)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.RateLimit(ratelimit.EndpointWebhook), s.HandlePaymentWebhook)
}
