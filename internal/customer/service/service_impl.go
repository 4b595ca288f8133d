package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/customer/domain"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Entitlements entitlementdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	entitlements entitlementdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("customer.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		entitlements: p.Entitlements,
	}
}

func (s *Service) Create(ctx context.Context, entityID snowflake.ID, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	var customer *domain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = s.CreateTx(ctx, tx, entityID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" && !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	if err := s.entitlements.Reserve(ctx, tx, entityID, entitlementdomain.ResourceCustomer, 1); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:          s.genID.Generate(),
		Code:        "cus_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		EntityID:    entityID,
		Name:        name,
		Email:       email,
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		CompanyName: strings.TrimSpace(req.CompanyName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, tx, &customer); err != nil {
		return nil, err
	}

	s.log.Info("customer created",
		zap.String("entity_id", entityID.String()),
		zap.String("customer_id", customer.ID.String()),
	)
	return &customer, nil
}

func (s *Service) GetByID(ctx context.Context, entityID snowflake.ID, id string) (*domain.Customer, error) {
	customerID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.GetByIDTx(ctx, s.db, entityID, customerID)
}

func (s *Service) GetByIDTx(ctx context.Context, tx *gorm.DB, entityID, id snowflake.ID) (*domain.Customer, error) {
	item, err := s.repo.FindByID(ctx, tx, entityID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, entityID snowflake.ID, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	items, err := s.repo.List(ctx, s.db, entityID, domain.ListCustomerFilter{Search: req.Search}, req.Pagination)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers, pageInfo := pagination.Page(items, req.Pagination, func(c domain.Customer) pagination.Cursor {
		return pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
		}
	})
	if customers == nil {
		customers = []domain.Customer{}
	}
	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
