package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type AddBankAccountRequest struct {
	BankCode      string `json:"bank_code" binding:"required"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number" binding:"required,len=10,numeric"`
}

type Service interface {
	// Add registers the account as a gateway subaccount and makes it the
	// entity's active settlement account.
	Add(ctx context.Context, entityID snowflake.ID, req AddBankAccountRequest) (*BankAccount, error)
	// Active returns nil when the entity has no settlement account.
	Active(ctx context.Context, entityID snowflake.ID) (*BankAccount, error)
	List(ctx context.Context, entityID snowflake.ID) ([]BankAccount, error)
}

var (
	ErrInvalidBankCode      = errors.New("invalid_bank_code")
	ErrInvalidAccountNumber = errors.New("invalid_account_number")
	ErrSubaccountRejected   = errors.New("subaccount_rejected")
)

// RejectedError carries the gateway's reason for refusing a subaccount.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "subaccount rejected: " + e.Message
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrSubaccountRejected
}
