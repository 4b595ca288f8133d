package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
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
	Repo       domain.Repository
	EntityRepo entitydomain.Repository
	Gateway    paystack.Client
	Billing    *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	entityRepo entitydomain.Repository
	gateway    paystack.Client
	billing    *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bankaccount.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		entityRepo: p.EntityRepo,
		gateway:    p.Gateway,
		billing:    p.Billing,
	}
}

func (s *Service) Add(ctx context.Context, entityID snowflake.ID, req domain.AddBankAccountRequest) (*domain.BankAccount, error) {
	bankCode := strings.TrimSpace(req.BankCode)
	if bankCode == "" {
		return nil, domain.ErrInvalidBankCode
	}
	accountNumber := strings.TrimSpace(req.AccountNumber)
	if !validAccountNumber(accountNumber) {
		return nil, domain.ErrInvalidAccountNumber
	}

	entity, err := s.entityRepo.FindByID(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}

	charge := s.billing.Get().SubaccountCharge
	res, err := s.gateway.CreateSubaccount(ctx, paystack.SubaccountRequest{
		BusinessName:     entity.Name,
		SettlementBank:   bankCode,
		AccountNumber:    accountNumber,
		PercentageCharge: charge,
		Description:      "Invoice settlement for " + entity.Name,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		s.log.Warn("subaccount rejected",
			zap.String("entity_id", entityID.String()),
			zap.String("message", res.Message),
		)
		return nil, &domain.RejectedError{Message: res.Message}
	}

	bankName := strings.TrimSpace(req.BankName)
	if bankName == "" {
		bankName = res.SettlementBank
	}

	now := s.clock.Now()
	account := domain.BankAccount{
		ID:               s.genID.Generate(),
		EntityID:         entityID,
		BankCode:         bankCode,
		BankName:         bankName,
		AccountNumber:    accountNumber,
		AccountName:      res.AccountName,
		SubaccountCode:   res.SubaccountCode,
		PercentageCharge: decimal.NewFromFloat(charge),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.entityRepo.LockByID(ctx, tx, entityID); err != nil {
			return err
		}
		if err := s.repo.DeactivateAll(ctx, tx, entityID, now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bank account added",
		zap.String("entity_id", entityID.String()),
		zap.String("subaccount_code", account.SubaccountCode),
	)
	return &account, nil
}

func (s *Service) Active(ctx context.Context, entityID snowflake.ID) (*domain.BankAccount, error) {
	return s.repo.FindActive(ctx, s.db, entityID)
}

func (s *Service) List(ctx context.Context, entityID snowflake.ID) ([]domain.BankAccount, error) {
	accounts, err := s.repo.List(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []domain.BankAccount{}
	}
	return accounts, nil
}

// validAccountNumber accepts a 10 digit NUBAN.
func validAccountNumber(value string) bool {
	if len(value) != 10 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
