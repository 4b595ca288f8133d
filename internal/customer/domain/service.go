package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Search string `form:"search"`
}

type ListCustomerFilter struct {
	Search string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	CompanyName string `json:"company_name"`
}

type Service interface {
	// Create reserves one customer entitlement and inserts in one transaction.
	Create(ctx context.Context, entityID snowflake.ID, req CreateCustomerRequest) (*Customer, error)
	// CreateTx is Create inside the caller's transaction.
	CreateTx(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, entityID snowflake.ID, id string) (*Customer, error)
	GetByIDTx(ctx context.Context, tx *gorm.DB, entityID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, entityID snowflake.ID, req ListCustomerRequest) (ListCustomerResponse, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("customer_not_found")
)
