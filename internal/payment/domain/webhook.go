package domain

import (
	"context"
	"net/http"
)

// WebhookOutcome is how a delivered webhook was resolved. Every outcome is
// acknowledged to the gateway; only an unverifiable or malformed delivery
// is rejected.
type WebhookOutcome string

const (
	OutcomeProcessed WebhookOutcome = "processed"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeFailed    WebhookOutcome = "failed"
	OutcomeRejected  WebhookOutcome = "rejected"
)

type WebhookProcessor interface {
	Handle(ctx context.Context, provider string, payload []byte, headers http.Header) (WebhookOutcome, error)
}
