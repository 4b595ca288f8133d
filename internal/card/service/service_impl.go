package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       carddomain.Repository
	EntityRepo entitydomain.Repository
	Gateway    paystack.Client
	Billing    *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       carddomain.Repository
	entityRepo entitydomain.Repository
	gateway    paystack.Client
	billing    *config.BillingConfigHolder
}

func NewService(p Params) carddomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("card.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		gateway:    p.Gateway,
		billing:    p.Billing,
	}
}

func (s *Service) InitializeCardSave(ctx context.Context, entityID snowflake.ID, email, callbackURL string) (*carddomain.CardSaveSession, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, carddomain.ErrInvalidEmail
	}

	amountKobo := s.billing.Get().CardSaveAmountKobo
	metadata := paymentdomain.NewCardVerification(entityID.String()).Map()
	metadata["description"] = "Card verification for saving"

	res, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountKobo:  amountKobo,
		Currency:    "NGN",
		CallbackURL: strings.TrimSpace(callbackURL),
		Reference:   paymentdomain.EntityReference(paymentdomain.PrefixCardSave, entityID.String(), s.clock.Now()),
		Channels:    []string{"card"},
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	session := &carddomain.CardSaveSession{
		Success:  res.Success,
		Amount:   paymentdomain.AmountFromKobo(amountKobo),
		Currency: "NGN",
	}
	if !res.Success {
		session.Message = res.Message
		if session.Message == "" {
			session.Message = carddomain.MessageInitFailed
		}
		return session, nil
	}
	session.PaymentURL = res.PaymentURL
	session.Reference = res.Reference
	return session, nil
}

func (s *Service) VerifyAndSave(ctx context.Context, entityID snowflake.ID, reference string) (*carddomain.SaveResult, error) {
	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		var apiErr *paystack.APIError
		if errors.As(err, &apiErr) {
			return &carddomain.SaveResult{Success: false, Message: apiErr.Message}, nil
		}
		return nil, err
	}
	if !tx.Succeeded() {
		return &carddomain.SaveResult{Success: false, Message: carddomain.MessageVerifyFailed}, nil
	}

	metadata, err := paymentdomain.DecodeMetadata(tx.Metadata)
	if err != nil || metadata.Purpose != paymentdomain.PurposeCardVerification {
		return &carddomain.SaveResult{Success: false, Message: carddomain.MessageVerifyFailed}, nil
	}
	if metadata.EntityID() != entityID.String() {
		return nil, carddomain.ErrReferenceEntityMismatch
	}

	return s.SaveCardFromAuthorization(ctx, entityID, FromGateway(tx.Authorization))
}

func (s *Service) SaveCardFromAuthorization(ctx context.Context, entityID snowflake.ID, auth carddomain.Authorization) (*carddomain.SaveResult, error) {
	auth.AuthorizationCode = strings.TrimSpace(auth.AuthorizationCode)
	if auth.AuthorizationCode == "" || strings.TrimSpace(auth.Last4) == "" {
		return nil, carddomain.ErrInvalidAuthorization
	}

	now := s.clock.Now()
	card := &carddomain.Card{
		ID:                s.genID.Generate(),
		EntityID:          entityID,
		AuthorizationCode: auth.AuthorizationCode,
		CardType:          strings.ToLower(strings.TrimSpace(auth.CardType)),
		Last4:             strings.TrimSpace(auth.Last4),
		ExpMonth:          strings.TrimSpace(auth.ExpMonth),
		ExpYear:           strings.TrimSpace(auth.ExpYear),
		Bin:               strings.TrimSpace(auth.Bin),
		Bank:              strings.TrimSpace(auth.Bank),
		CountryCode:       strings.ToUpper(strings.TrimSpace(auth.CountryCode)),
		Brand:             strings.TrimSpace(auth.Brand),
		IsActive:          true,
		CardName:          "My Card",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if card.CountryCode == "" {
		card.CountryCode = "NG"
	}
	if card.Brand == "" {
		card.Brand = card.CardType
	}

	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockEntity(ctx, tx, entityID); err != nil {
			return err
		}

		count, err := s.repo.CountActive(ctx, tx, entityID)
		if err != nil {
			return err
		}
		card.IsDefault = count == 0

		inserted, err = s.repo.Insert(ctx, tx, card)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !inserted {
		s.log.Info("card authorization already saved", zap.String("entity_id", entityID.String()))
		return &carddomain.SaveResult{Success: false, Message: carddomain.MessageAlreadySaved}, nil
	}

	s.log.Info("card saved",
		zap.String("entity_id", entityID.String()),
		zap.String("card_id", card.ID.String()),
		zap.Bool("is_default", card.IsDefault),
	)
	return &carddomain.SaveResult{Success: true, Message: carddomain.MessageCardSaved, Card: card}, nil
}

func (s *Service) ListCards(ctx context.Context, entityID snowflake.ID) ([]carddomain.Card, error) {
	return s.repo.ListActive(ctx, s.db, entityID)
}

func (s *Service) SetDefault(ctx context.Context, entityID, cardID snowflake.ID) (*carddomain.Card, error) {
	if cardID <= 0 {
		return nil, carddomain.ErrInvalidCardID
	}

	var card *carddomain.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockEntity(ctx, tx, entityID); err != nil {
			return err
		}

		target, err := s.repo.FindActive(ctx, tx, entityID, cardID)
		if err != nil {
			return err
		}
		if target == nil {
			return carddomain.ErrCardNotFound
		}

		now := s.clock.Now()
		if err := s.repo.ClearDefault(ctx, tx, entityID, now); err != nil {
			return err
		}
		if _, err := s.repo.MarkDefault(ctx, tx, entityID, cardID, now); err != nil {
			return err
		}

		target.IsDefault = true
		target.UpdatedAt = now
		card = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Deactivate removes a card. When it was the default, the oldest remaining
// active card is promoted in the same transaction.
func (s *Service) Deactivate(ctx context.Context, entityID, cardID snowflake.ID) error {
	if cardID <= 0 {
		return carddomain.ErrInvalidCardID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockEntity(ctx, tx, entityID); err != nil {
			return err
		}

		target, err := s.repo.FindActive(ctx, tx, entityID, cardID)
		if err != nil {
			return err
		}
		if target == nil {
			return carddomain.ErrCardNotFound
		}

		now := s.clock.Now()
		if _, err := s.repo.Deactivate(ctx, tx, entityID, cardID, now); err != nil {
			return err
		}
		if !target.IsDefault {
			return nil
		}

		next, err := s.repo.FindPromotable(ctx, tx, entityID, cardID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if _, err := s.repo.MarkDefault(ctx, tx, entityID, next.ID, now); err != nil {
			return err
		}
		s.log.Info("default card promoted",
			zap.String("entity_id", entityID.String()),
			zap.String("card_id", next.ID.String()),
		)
		return nil
	})
}

func (s *Service) ChargeDefaultOrSpecific(ctx context.Context, req carddomain.ChargeRequest) (*carddomain.ChargeResult, error) {
	if !req.Amount.IsPositive() {
		return nil, carddomain.ErrInvalidAmount
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, carddomain.ErrInvalidEmail
	}

	var (
		card *carddomain.Card
		err  error
	)
	if req.CardID != nil {
		card, err = s.repo.FindActive(ctx, s.db, req.EntityID, *req.CardID)
	} else {
		card, err = s.repo.FindDefault(ctx, s.db, req.EntityID)
	}
	if err != nil {
		return nil, err
	}

	result := &carddomain.ChargeResult{Amount: req.Amount, Currency: "NGN"}
	if card == nil {
		result.Message = carddomain.MessageNoDefaultCard
		if req.CardID != nil {
			result.Message = carddomain.MessageCardNotFound
		}
		return result, nil
	}

	summary := card.Summary()
	result.Card = &summary
	result.Reference = strings.TrimSpace(req.Reference)
	if result.Reference == "" {
		result.Reference = paymentdomain.EntityReference(paymentdomain.PrefixCharge, req.EntityID.String(), s.clock.Now())
	}

	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.Description != "" {
		metadata["description"] = req.Description
	}

	charge, err := s.gateway.ChargeAuthorization(ctx, paystack.ChargeRequest{
		AuthorizationCode: card.AuthorizationCode,
		Email:             email,
		AmountKobo:        paymentdomain.KoboFromAmount(req.Amount),
		Currency:          "NGN",
		Reference:         result.Reference,
		Metadata:          metadata,
	})
	if err != nil {
		s.log.Warn("card charge outcome unknown",
			zap.String("entity_id", req.EntityID.String()),
			zap.String("reference", result.Reference),
			zap.Error(err),
		)
		return nil, fmt.Errorf("charge %s: %w", result.Reference, err)
	}

	result.Success = charge.Success
	result.Status = charge.Status
	result.PaidAt = charge.PaidAt
	if charge.Reference != "" {
		result.Reference = charge.Reference
	}
	if charge.Success {
		result.Message = carddomain.MessagePaymentSuccess
	} else {
		result.Message = charge.Message
		if result.Message == "" {
			result.Message = carddomain.MessagePaymentFailed
		}
	}

	s.log.Info("card charged",
		zap.String("entity_id", req.EntityID.String()),
		zap.String("reference", result.Reference),
		zap.Bool("success", result.Success),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return result, nil
}

func (s *Service) PaymentReadiness(ctx context.Context, entityID snowflake.ID) (*carddomain.Readiness, error) {
	cards, err := s.repo.ListActive(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}

	readiness := &carddomain.Readiness{
		HasCards:   len(cards) > 0,
		TotalCards: len(cards),
	}
	for _, card := range cards {
		if card.IsDefault {
			summary := card.Summary()
			readiness.DefaultCard = &summary
			break
		}
	}
	readiness.CanUpgrade = readiness.DefaultCard != nil
	return readiness, nil
}

func (s *Service) lockEntity(ctx context.Context, tx *gorm.DB, entityID snowflake.ID) error {
	entity, err := s.entityRepo.LockByID(ctx, tx, entityID)
	if err != nil {
		return err
	}
	if entity == nil {
		return entitydomain.ErrEntityNotFound
	}
	return nil
}

// FromGateway maps a gateway authorization into the vault's input.
func FromGateway(a paystack.Authorization) carddomain.Authorization {
	return carddomain.Authorization{
		AuthorizationCode: a.AuthorizationCode,
		CardType:          a.CardType,
		Last4:             a.Last4,
		ExpMonth:          a.ExpMonth,
		ExpYear:           a.ExpYear,
		Bin:               a.Bin,
		Bank:              a.Bank,
		CountryCode:       a.CountryCode,
		Brand:             a.Brand,
		Reusable:          a.Reusable,
	}
}
