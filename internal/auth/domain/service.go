package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
)

type Service interface {
	// Register creates the entity, assigns the free plan and issues a token.
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
}

type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Password     string `json:"password" binding:"required"`
	BusinessType string `json:"business_type"`
	Address      string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token        string                           `json:"token"`
	ExpiresAt    time.Time                        `json:"expires_at"`
	Entity       *entitydomain.Entity             `json:"entity"`
	Subscription *subscriptiondomain.Subscription `json:"subscription,omitempty"`
}

// Principal is the authenticated caller carried on a request.
type Principal struct {
	EntityID snowflake.ID
	Email    string
}

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
)
