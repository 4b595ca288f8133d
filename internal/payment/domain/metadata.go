package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Purpose discriminates what a gateway transaction was for.
type Purpose string

const (
	PurposeCardVerification    Purpose = "card_verification"
	PurposeInvoicePayment      Purpose = "invoice_payment"
	PurposeSubscriptionUpgrade Purpose = "subscription_upgrade"
)

// typeCardSave is the legacy type tag carried alongside card_verification.
const typeCardSave = "card_save"

var (
	ErrUnknownPurpose  = errors.New("unknown_metadata_purpose")
	ErrInvalidMetadata = errors.New("invalid_metadata")
)

// Metadata is the tagged union attached to gateway transactions.
// Exactly one variant is set, matching Purpose.
type Metadata struct {
	Purpose      Purpose
	Card         *CardVerification
	Invoice      *InvoicePayment
	Subscription *SubscriptionUpgrade
}

type CardVerification struct {
	EntityID string
}

type InvoicePayment struct {
	EntityID      string
	InvoiceID     string
	TransactionID string
	CustomerEmail string
}

type SubscriptionUpgrade struct {
	EntityID string
	PlanName string
}

func NewCardVerification(entityID string) Metadata {
	return Metadata{Purpose: PurposeCardVerification, Card: &CardVerification{EntityID: entityID}}
}

func NewInvoicePayment(v InvoicePayment) Metadata {
	return Metadata{Purpose: PurposeInvoicePayment, Invoice: &v}
}

func NewSubscriptionUpgrade(entityID, planName string) Metadata {
	return Metadata{Purpose: PurposeSubscriptionUpgrade, Subscription: &SubscriptionUpgrade{EntityID: entityID, PlanName: planName}}
}

// EntityID returns the owning entity of whichever variant is set.
func (m Metadata) EntityID() string {
	switch {
	case m.Card != nil:
		return m.Card.EntityID
	case m.Invoice != nil:
		return m.Invoice.EntityID
	case m.Subscription != nil:
		return m.Subscription.EntityID
	default:
		return ""
	}
}

// Map renders the wire form sent to the gateway.
func (m Metadata) Map() map[string]any {
	out := map[string]any{"purpose": string(m.Purpose)}
	switch m.Purpose {
	case PurposeCardVerification:
		out["type"] = typeCardSave
		out["entity_id"] = m.Card.EntityID
	case PurposeInvoicePayment:
		out["type"] = string(PurposeInvoicePayment)
		out["entity_id"] = m.Invoice.EntityID
		out["invoice_id"] = m.Invoice.InvoiceID
		out["transaction_id"] = m.Invoice.TransactionID
		if m.Invoice.CustomerEmail != "" {
			out["customer_email"] = m.Invoice.CustomerEmail
		}
	case PurposeSubscriptionUpgrade:
		out["type"] = string(PurposeSubscriptionUpgrade)
		out["entity_id"] = m.Subscription.EntityID
		out["plan_name"] = m.Subscription.PlanName
	}
	return out
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// DecodeMetadata parses gateway metadata. Paystack sometimes echoes the
// object back as a JSON string, so both forms are accepted.
func DecodeMetadata(raw []byte) (Metadata, error) {
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return Metadata{}, ErrInvalidMetadata
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Metadata{}, ErrInvalidMetadata
		}
		raw = []byte(inner)
	}

	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return Metadata{}, ErrInvalidMetadata
	}

	field := func(keys ...string) string {
		for _, key := range keys {
			switch v := bag[key].(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		return ""
	}

	purpose := Purpose(field("purpose"))
	if purpose == "" {
		purpose = purposeFromType(field("type"))
	}

	switch purpose {
	case PurposeCardVerification:
		entityID := field("entity_id", "entityId")
		if entityID == "" {
			return Metadata{}, ErrInvalidMetadata
		}
		return NewCardVerification(entityID), nil
	case PurposeInvoicePayment:
		v := InvoicePayment{
			EntityID:      field("entity_id", "entityId"),
			InvoiceID:     field("invoice_id", "invoiceId"),
			TransactionID: field("transaction_id", "transactionId"),
			CustomerEmail: field("customer_email", "customerEmail"),
		}
		if v.InvoiceID == "" {
			return Metadata{}, ErrInvalidMetadata
		}
		return NewInvoicePayment(v), nil
	case PurposeSubscriptionUpgrade:
		entityID := field("entity_id", "entityId")
		planName := field("plan_name", "planName")
		if entityID == "" || planName == "" {
			return Metadata{}, ErrInvalidMetadata
		}
		return NewSubscriptionUpgrade(entityID, planName), nil
	default:
		return Metadata{}, ErrUnknownPurpose
	}
}

func purposeFromType(t string) Purpose {
	switch t {
	case typeCardSave, string(PurposeCardVerification):
		return PurposeCardVerification
	case string(PurposeInvoicePayment):
		return PurposeInvoicePayment
	case string(PurposeSubscriptionUpgrade), "subscription_payment":
		return PurposeSubscriptionUpgrade
	default:
		return ""
	}
}
