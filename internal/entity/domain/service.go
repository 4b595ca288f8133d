package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	BusinessType string
	Address      string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Entity, error)
	Authenticate(ctx context.Context, email, password string) (*Entity, error)
	Get(ctx context.Context, id snowflake.ID) (*Entity, error)
}

var (
	ErrEntityNotFound      = errors.New("entity_not_found")
	ErrInvalidEntityID     = errors.New("invalid_entity_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidPhone        = errors.New("invalid_phone")
	ErrInvalidPassword     = errors.New("invalid_password")
	ErrInvalidBusinessType = errors.New("invalid_business_type")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrDuplicate           = errors.New("duplicate_resource")
)

// DuplicateError names the unique field that collided.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("an account with this %s already exists", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// ParseID parses a decimal snowflake id.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, ErrInvalidEntityID
	}
	return id, nil
}
