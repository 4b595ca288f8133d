package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
)

const SignatureHeader = "x-paystack-signature"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderPaystack
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" && !cfg.AllowUnsigned {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{
		secret:        secret,
		allowUnsigned: cfg.AllowUnsigned,
	}, nil
}

type Adapter struct {
	secret        string
	allowUnsigned bool
}

// Verify checks the hex HMAC-SHA512 of the raw body. A missing header is
// accepted only when unsigned delivery is explicitly allowed.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	if signature == "" {
		if a.allowUnsigned {
			return nil
		}
		return paymentdomain.ErrInvalidSignature
	}
	if a.secret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(a.secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event paystackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.Event)
	switch eventType {
	case paymentdomain.EventChargeSuccess,
		paymentdomain.EventTransferSuccess,
		paymentdomain.EventSubscriptionCreate,
		paymentdomain.EventSubscriptionDisable:
	case "":
		return nil, paymentdomain.ErrInvalidEvent
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	var data paystackData
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
	}

	reference := strings.TrimSpace(data.Reference)
	if reference == "" {
		reference = strings.TrimSpace(data.SubscriptionCode)
	}
	if reference == "" && data.TransferCode != "" {
		reference = strings.TrimSpace(data.TransferCode)
	}

	eventID := reference
	if data.ID != 0 {
		eventID = strconv.FormatInt(data.ID, 10)
	}
	if eventID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	occurredAt := time.Now().UTC()
	if data.PaidAt != nil {
		occurredAt = data.PaidAt.UTC()
	} else if data.CreatedAt != nil {
		occurredAt = data.CreatedAt.UTC()
	}

	return &paymentdomain.PaymentEvent{
		Provider:        paymentdomain.ProviderPaystack,
		ProviderEventID: eventType + ":" + eventID,
		Type:            eventType,
		Reference:       reference,
		AmountKobo:      data.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(data.Currency)),
		Metadata:        data.Metadata,
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}

type paystackEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type paystackData struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"reference"`
	SubscriptionCode string          `json:"subscription_code"`
	TransferCode     string          `json:"transfer_code"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	PaidAt           *time.Time      `json:"paid_at"`
	CreatedAt        *time.Time      `json:"created_at"`
	Metadata         json.RawMessage `json:"metadata"`
}
