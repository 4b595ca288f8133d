package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	"github.com/smallbiznis/invoicepadi/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var defaultVATRate = decimal.RequireFromString("7.5")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  entitydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  entitydomain.Repository
}

func NewService(p Params) entitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req entitydomain.RegisterRequest) (*entitydomain.Entity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entitydomain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, entitydomain.ErrInvalidEmail
	}

	if len(req.Password) < minPasswordLength {
		return nil, entitydomain.ErrInvalidPassword
	}

	businessType := entitydomain.BusinessType(strings.ToLower(strings.TrimSpace(req.BusinessType)))
	if businessType == "" {
		businessType = entitydomain.BusinessOther
	}
	if !businessType.Valid() {
		return nil, entitydomain.ErrInvalidBusinessType
	}

	var phone *string
	if raw := strings.TrimSpace(req.Phone); raw != "" {
		normalized := whatsapp.NormalizePhone(raw)
		if normalized == "" {
			return nil, entitydomain.ErrInvalidPhone
		}
		phone = &normalized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entity := entitydomain.Entity{
		ID:                 s.genID.Generate(),
		Name:               name,
		Slug:               slug.Make(name),
		Email:              email,
		Phone:              phone,
		PasswordHash:       string(hash),
		BusinessType:       businessType,
		Address:            strings.TrimSpace(req.Address),
		VATRate:            defaultVATRate,
		SubscriptionStatus: entitydomain.StatusInactive,
		TeamMembersCount:   1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &entity); err != nil {
		if field := db.DuplicateColumn(err, "email", "phone"); field != "" {
			return nil, &entitydomain.DuplicateError{Field: field}
		}
		if db.IsDuplicateKeyErr(err) {
			return nil, &entitydomain.DuplicateError{Field: "account"}
		}
		return nil, err
	}

	s.log.Info("entity registered",
		zap.String("entity_id", entity.ID.String()),
		zap.String("business_type", string(entity.BusinessType)),
	)
	return &entity, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*entitydomain.Entity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, entitydomain.ErrInvalidCredentials
	}

	entity, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entity.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, entitydomain.ErrInvalidCredentials
		}
		return nil, err
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*entitydomain.Entity, error) {
	if id <= 0 {
		return nil, entitydomain.ErrInvalidEntityID
	}
	entity, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrEntityNotFound
	}
	return entity, nil
}
