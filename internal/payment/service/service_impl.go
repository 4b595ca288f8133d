package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Ledger {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreatePending(ctx context.Context, db *gorm.DB, req paymentdomain.CreatePendingRequest) (*paymentdomain.Transaction, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	if !req.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if req.Metadata.Purpose == "" {
		return nil, paymentdomain.ErrInvalidMetadata
	}

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "NGN"
	}

	now := s.clock.Now()
	item := &paymentdomain.Transaction{
		ID:          s.genID.Generate(),
		Code:        paymentdomain.TransactionCode(now),
		EntityID:    req.EntityID,
		CustomerID:  req.CustomerID,
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Currency:    currency,
		Type:        paymentdomain.TypePayment,
		Status:      paymentdomain.StatusPending,
		Channel:     paymentdomain.ChannelPaystack,
		Purpose:     req.Metadata.Purpose,
		Reference:   reference,
		Description: req.Description,
		Metadata:    datatypes.JSON(metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if db == nil {
		db = s.db
	}
	if err := s.repo.InsertTransaction(ctx, db, item); err != nil {
		return nil, err
	}

	s.log.Info("pending transaction recorded",
		zap.String("reference", reference),
		zap.String("purpose", string(item.Purpose)),
		zap.String("entity_id", req.EntityID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return item, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*paymentdomain.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	item, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, paymentdomain.ErrTransactionNotFound
	}
	return item, nil
}

func (s *Service) LockByReference(ctx context.Context, tx *gorm.DB, reference string) (*paymentdomain.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, paymentdomain.ErrInvalidReference
	}
	item, err := s.repo.LockByReference(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, paymentdomain.ErrTransactionNotFound
	}
	return item, nil
}

func (s *Service) MarkSuccess(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	return s.repo.Transition(ctx, tx, id, paymentdomain.StatusSuccess, "", s.clock.Now())
}

func (s *Service) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error) {
	if db == nil {
		db = s.db
	}
	moved, err := s.repo.Transition(ctx, db, id, paymentdomain.StatusFailed, reason, s.clock.Now())
	if err != nil {
		return false, err
	}
	if moved {
		s.log.Info("transaction failed",
			zap.String("transaction_id", id.String()),
			zap.String("reason", reason),
		)
	}
	return moved, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Transaction, error) {
	return s.repo.ListByInvoice(ctx, s.db, invoiceID)
}

func (s *Service) ListStalePending(ctx context.Context, purpose paymentdomain.Purpose, olderThan time.Duration, limit int) ([]paymentdomain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListStalePending(ctx, s.db, purpose, s.clock.Now().Add(-olderThan), limit)
}

func (s *Service) RecordEvent(ctx context.Context, event *paymentdomain.PaymentEvent) (*paymentdomain.EventRecord, bool, error) {
	if event == nil || strings.TrimSpace(event.ProviderEventID) == "" || strings.TrimSpace(event.Type) == "" {
		return nil, false, paymentdomain.ErrInvalidEvent
	}
	if !json.Valid(event.RawPayload) {
		return nil, false, paymentdomain.ErrInvalidPayload
	}

	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Reference:       event.Reference,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      s.clock.Now(),
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		s.obsMetrics.RecordPaymentEvent(ctx, event.Provider, event.Type)
		return &received, true, nil
	}

	stored, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, paymentdomain.ErrInvalidEvent
	}
	// A recorded but unprocessed event is retried.
	return stored, stored.ProcessedAt == nil, nil
}

func (s *Service) MarkEventProcessed(ctx context.Context, id snowflake.ID) error {
	return s.repo.MarkProcessed(ctx, s.db, id, s.clock.Now())
}
