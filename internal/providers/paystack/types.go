package paystack

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstreamUnavailable means the outcome is unknown: timeout, network
	// failure or a 5xx. Callers must not treat it as a decline.
	ErrUpstreamUnavailable = errors.New("payment_gateway_unavailable")
	ErrNotConfigured       = errors.New("payment_gateway_not_configured")
)

// APIError is a definite rejection reported by the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %d %s", e.StatusCode, e.Message)
}

type InitializeRequest struct {
	Email       string
	AmountKobo  int64
	Currency    string
	CallbackURL string
	Reference   string
	Channels    []string
	Subaccount  string
	Metadata    map[string]any
}

type InitializeResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`
	AccessCode string `json:"access_code,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	Last4             string `json:"last4"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Bin               string `json:"bin"`
	Bank              string `json:"bank"`
	Channel           string `json:"channel"`
	CountryCode       string `json:"country_code"`
	Brand             string `json:"brand"`
	Reusable          bool   `json:"reusable"`
	Signature         string `json:"signature"`
}

type Customer struct {
	Email string `json:"email"`
}

// Transaction is the verified state of a gateway transaction.
type Transaction struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          *time.Time      `json:"paid_at"`
	Metadata        json.RawMessage `json:"metadata"`
	Authorization   Authorization   `json:"authorization"`
	Customer        Customer        `json:"customer"`
}

const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusReversed  = "reversed"
)

// Succeeded reports a settled charge.
func (t Transaction) Succeeded() bool {
	return t.Status == StatusSuccess
}

// Definitive reports a terminal negative outcome.
func (t Transaction) Definitive() bool {
	switch t.Status {
	case StatusFailed, StatusAbandoned, StatusReversed:
		return true
	default:
		return false
	}
}

type ChargeRequest struct {
	AuthorizationCode string
	Email             string
	AmountKobo        int64
	Currency          string
	Reference         string
	Metadata          map[string]any
}

type ChargeResult struct {
	Success   bool       `json:"success"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

type SubaccountRequest struct {
	BusinessName     string
	SettlementBank   string
	AccountNumber    string
	PercentageCharge float64
	Description      string
}

type SubaccountResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	SubaccountCode string `json:"subaccount_code,omitempty"`
	SettlementBank string `json:"settlement_bank,omitempty"`
	AccountName    string `json:"account_name,omitempty"`
}

// KoboFromNaira converts a whole-Naira amount into the gateway's minor unit.
func KoboFromNaira(naira int64) int64 {
	return naira * 100
}
