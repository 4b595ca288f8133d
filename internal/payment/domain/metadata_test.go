package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		purpose Purpose
		check   func(t *testing.T, m Metadata)
		wantErr error
	}{
		{
			name:    "card save by purpose",
			raw:     `{"purpose":"card_verification","entity_id":"42","type":"card_save"}`,
			purpose: PurposeCardVerification,
			check: func(t *testing.T, m Metadata) {
				require.NotNil(t, m.Card)
				assert.Equal(t, "42", m.Card.EntityID)
			},
		},
		{
			name:    "card save by legacy type and camel case",
			raw:     `{"type":"card_save","entityId":"42"}`,
			purpose: PurposeCardVerification,
		},
		{
			name:    "invoice payment",
			raw:     `{"type":"invoice_payment","invoice_id":"7","transaction_id":"9","entity_id":"42"}`,
			purpose: PurposeInvoicePayment,
			check: func(t *testing.T, m Metadata) {
				require.NotNil(t, m.Invoice)
				assert.Equal(t, "7", m.Invoice.InvoiceID)
				assert.Equal(t, "9", m.Invoice.TransactionID)
			},
		},
		{
			name:    "metadata sent as string",
			raw:     `"{\"purpose\":\"subscription_upgrade\",\"entity_id\":\"42\",\"plan_name\":\"premium\"}"`,
			purpose: PurposeSubscriptionUpgrade,
			check: func(t *testing.T, m Metadata) {
				require.NotNil(t, m.Subscription)
				assert.Equal(t, "premium", m.Subscription.PlanName)
				assert.Equal(t, "42", m.EntityID())
			},
		},
		{
			name:    "numeric ids",
			raw:     `{"purpose":"card_verification","entity_id":1234567890123}`,
			purpose: PurposeCardVerification,
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, "1234567890123", m.Card.EntityID)
			},
		},
		{name: "unknown purpose", raw: `{"purpose":"refund"}`, wantErr: ErrUnknownPurpose},
		{name: "missing fields", raw: `{"purpose":"subscription_upgrade","entity_id":"1"}`, wantErr: ErrInvalidMetadata},
		{name: "empty", raw: ``, wantErr: ErrInvalidMetadata},
		{name: "null", raw: `null`, wantErr: ErrInvalidMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMetadata([]byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.purpose, m.Purpose)
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestMetadataWireForm(t *testing.T) {
	raw, err := json.Marshal(NewCardVerification("42"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"purpose":"card_verification","type":"card_save","entity_id":"42"}`, string(raw))

	decoded, err := DecodeMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", decoded.EntityID())
}

func TestKoboConversion(t *testing.T) {
	assert.EqualValues(t, 537500, KoboFromAmount(decimal.RequireFromString("5375")))
	assert.EqualValues(t, 1050, KoboFromAmount(decimal.RequireFromString("10.495")))
	assert.True(t, AmountFromKobo(537550).Equal(decimal.RequireFromString("5375.50")))
}
