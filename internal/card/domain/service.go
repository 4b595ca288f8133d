package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	InitializeCardSave(ctx context.Context, entityID snowflake.ID, email, callbackURL string) (*CardSaveSession, error)
	// VerifyAndSave completes a card save from the hosted-payment callback.
	VerifyAndSave(ctx context.Context, entityID snowflake.ID, reference string) (*SaveResult, error)
	SaveCardFromAuthorization(ctx context.Context, entityID snowflake.ID, auth Authorization) (*SaveResult, error)
	ListCards(ctx context.Context, entityID snowflake.ID) ([]Card, error)
	SetDefault(ctx context.Context, entityID, cardID snowflake.ID) (*Card, error)
	Deactivate(ctx context.Context, entityID, cardID snowflake.ID) error
	ChargeDefaultOrSpecific(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	PaymentReadiness(ctx context.Context, entityID snowflake.ID) (*Readiness, error)
}

var (
	ErrCardNotFound            = errors.New("card_not_found")
	ErrInvalidCardID           = errors.New("invalid_card_id")
	ErrInvalidAuthorization    = errors.New("invalid_authorization")
	ErrInvalidEmail            = errors.New("invalid_email")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrReferenceEntityMismatch = errors.New("reference_entity_mismatch")
)

const (
	MessageCardSaved      = "Card saved successfully"
	MessageAlreadySaved   = "Card already saved"
	MessageNoDefaultCard  = "No default card found"
	MessageCardNotFound   = "Card not found"
	MessageVerifyFailed   = "Payment verification failed"
	MessagePaymentSuccess = "Payment successful"
	MessagePaymentFailed  = "Payment failed"
	MessageInitFailed     = "Card save initialization failed"
)
