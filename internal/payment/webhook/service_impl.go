package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	cardservice "github.com/smallbiznis/invoicepadi/internal/card/service"
	"github.com/smallbiznis/invoicepadi/internal/config"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	"github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	"github.com/smallbiznis/invoicepadi/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Cfg           config.Config
	Adapters      *adapters.Registry
	Ledger        paymentdomain.Ledger
	Gateway       paystack.Client
	Cards         carddomain.Service
	Invoices      invoicedomain.Service
	Subscriptions subscriptiondomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	adapters      *adapters.Registry
	secret        string
	allowUnsigned bool

	ledger        paymentdomain.Ledger
	gateway       paystack.Client
	cards         carddomain.Service
	invoices      invoicedomain.Service
	subscriptions subscriptiondomain.Service
	metrics       *metrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookProcessor {
	return &Service{
		log:           p.Log.Named("payment.webhook"),
		adapters:      p.Adapters,
		secret:        strings.TrimSpace(p.Cfg.Paystack.SecretKey),
		allowUnsigned: p.Cfg.Paystack.WebhookAllowUnsigned,

		ledger:        p.Ledger,
		gateway:       p.Gateway,
		cards:         p.Cards,
		invoices:      p.Invoices,
		subscriptions: p.Subscriptions,
		metrics:       p.Metrics,
	}
}

// Handle verifies, records and dispatches one delivery. Errors are returned
// only for deliveries that must be rejected: an unknown provider, a bad
// signature or an unparseable body. Failures inside a branch are logged and
// leave the event unprocessed so a redelivery runs it again.
func (s *Service) Handle(ctx context.Context, provider string, payload []byte, headers http.Header) (paymentdomain.WebhookOutcome, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, err := s.adapters.Adapter(provider, paymentdomain.AdapterConfig{
		WebhookSecret: s.secret,
		AllowUnsigned: s.allowUnsigned,
	})
	if err != nil {
		return paymentdomain.OutcomeRejected, err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		s.metrics.RecordWebhookOutcome(ctx, "unknown", string(paymentdomain.OutcomeRejected))
		return paymentdomain.OutcomeRejected, err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.metrics.RecordWebhookOutcome(ctx, "other", string(paymentdomain.OutcomeIgnored))
			return paymentdomain.OutcomeIgnored, nil
		}
		s.metrics.RecordWebhookOutcome(ctx, "unknown", string(paymentdomain.OutcomeRejected))
		return paymentdomain.OutcomeRejected, err
	}

	outcome := s.process(ctx, event)
	s.metrics.RecordWebhookOutcome(ctx, event.Type, string(outcome))
	return outcome, nil
}

func (s *Service) process(ctx context.Context, event *paymentdomain.PaymentEvent) paymentdomain.WebhookOutcome {
	log := s.log.With(
		zap.String("event", event.Type),
		zap.String("event_id", event.ProviderEventID),
		zap.String("reference", event.Reference),
	)

	record, shouldProcess, err := s.ledger.RecordEvent(ctx, event)
	if err != nil {
		log.Error("failed to record webhook event", zap.Error(err))
		return paymentdomain.OutcomeFailed
	}
	if !shouldProcess {
		log.Info("duplicate webhook event skipped")
		return paymentdomain.OutcomeDuplicate
	}

	if err := s.dispatch(ctx, log, event); err != nil {
		log.Error("webhook event processing failed", zap.Error(err))
		return paymentdomain.OutcomeFailed
	}

	if err := s.ledger.MarkEventProcessed(ctx, record.ID); err != nil {
		log.Error("failed to mark webhook event processed", zap.Error(err))
		return paymentdomain.OutcomeFailed
	}
	return paymentdomain.OutcomeProcessed
}

func (s *Service) dispatch(ctx context.Context, log *zap.Logger, event *paymentdomain.PaymentEvent) error {
	switch event.Type {
	case paymentdomain.EventChargeSuccess:
		return s.chargeSucceeded(ctx, log, event)
	case paymentdomain.EventTransferSuccess:
		log.Info("transfer completed")
	case paymentdomain.EventSubscriptionCreate:
		log.Info("gateway subscription created")
	case paymentdomain.EventSubscriptionDisable:
		log.Info("gateway subscription disabled")
	}
	return nil
}

// chargeSucceeded re-verifies the charge with the gateway before acting on
// it and then routes on the metadata purpose.
func (s *Service) chargeSucceeded(ctx context.Context, log *zap.Logger, event *paymentdomain.PaymentEvent) error {
	verified, err := s.gateway.VerifyTransaction(ctx, event.Reference)
	if err != nil {
		return fmt.Errorf("verify %s: %w", event.Reference, err)
	}
	if !verified.Succeeded() {
		log.Warn("charge not confirmed by gateway", zap.String("status", verified.Status))
		return nil
	}

	reference := verified.Reference
	if reference == "" {
		reference = event.Reference
	}

	metadata, err := paymentdomain.DecodeMetadata(verified.Metadata)
	if err != nil {
		metadata, err = paymentdomain.DecodeMetadata(event.Metadata)
	}
	if err != nil {
		log.Warn("charge metadata not recognised", zap.Error(err))
		return nil
	}

	switch metadata.Purpose {
	case paymentdomain.PurposeCardVerification:
		entityID, err := snowflake.ParseString(metadata.Card.EntityID)
		if err != nil {
			log.Warn("card save metadata has invalid entity", zap.String("entity_id", metadata.Card.EntityID))
			return nil
		}
		res, err := s.cards.SaveCardFromAuthorization(ctx, entityID, cardservice.FromGateway(verified.Authorization))
		if err != nil {
			return err
		}
		log.Info("card save completed",
			zap.String("entity_id", entityID.String()),
			zap.Bool("success", res.Success),
			zap.String("message", res.Message),
		)

	case paymentdomain.PurposeInvoicePayment:
		res, err := s.invoices.ApplyPayment(ctx, reference)
		if err != nil {
			return err
		}
		log.Info("invoice payment completed",
			zap.String("invoice_id", res.InvoiceID.String()),
			zap.Bool("applied", res.Applied),
			zap.String("status", string(res.Status)),
		)

	case paymentdomain.PurposeSubscriptionUpgrade:
		res, err := s.subscriptions.CompletePaidUpgrade(ctx, reference)
		if err != nil {
			return err
		}
		log.Info("subscription payment completed",
			zap.String("plan", metadata.Subscription.PlanName),
			zap.Bool("applied", res.Applied),
		)
	}
	return nil
}
