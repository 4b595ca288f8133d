package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/invoicepadi/internal/auth/domain"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tokenIssuer     = "invoicepadi"
	defaultTokenTTL = 7 * 24 * time.Hour
	secretBytes     = 32
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	Entities      entitydomain.Service
	Subscriptions subscriptiondomain.Service
}

type Service struct {
	log           *zap.Logger
	clock         clock.Clock
	entities      entitydomain.Service
	subscriptions subscriptiondomain.Service
	secret        []byte
	ttl           time.Duration
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func NewService(p Params) (authdomain.Service, error) {
	log := p.Log.Named("auth.service")

	secret := []byte(p.Cfg.AuthJWTSecret)
	if len(secret) == 0 {
		if p.Cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		secret = make([]byte, secretBytes)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET not set, using an ephemeral signing key")
	}

	ttl := p.Cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Service{
		log:           log,
		clock:         p.Clock,
		entities:      p.Entities,
		subscriptions: p.Subscriptions,
		secret:        secret,
		ttl:           ttl,
	}, nil
}

func (s *Service) Register(ctx context.Context, req authdomain.RegisterRequest) (*authdomain.AuthResult, error) {
	entity, err := s.entities.Register(ctx, entitydomain.RegisterRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     req.Password,
		BusinessType: req.BusinessType,
		Address:      req.Address,
	})
	if err != nil {
		return nil, err
	}

	// An entity without a plan is read as free, so a failure here does not
	// block the account.
	sub, err := s.subscriptions.Initialize(ctx, entity.ID)
	if err != nil {
		s.log.Error("failed to initialize free plan",
			zap.String("entity_id", entity.ID.String()),
			zap.Error(err),
		)
	}

	return s.issue(entity, sub)
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.AuthResult, error) {
	entity, err := s.entities.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(entity, nil)
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*authdomain.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, authdomain.ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(rawToken, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	entityID, err := snowflake.ParseString(c.Subject)
	if err != nil || entityID <= 0 {
		return nil, authdomain.ErrInvalidToken
	}
	return &authdomain.Principal{EntityID: entityID, Email: c.Email}, nil
}

func (s *Service) issue(entity *entitydomain.Entity, sub *subscriptiondomain.Subscription) (*authdomain.AuthResult, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   entity.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: entity.Email,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &authdomain.AuthResult{
		Token:        signed,
		ExpiresAt:    expiresAt,
		Entity:       entity,
		Subscription: sub,
	}, nil
}
