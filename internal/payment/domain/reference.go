package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixCardSave = "CARD_SAVE"
	PrefixCharge   = "CHARGE"
	PrefixInvoice  = "INV"
)

// EntityReference builds <PREFIX>_<entity>_<unix millis>.
func EntityReference(prefix, entityID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", prefix, entityID, at.UnixMilli())
}

// UniqueReference builds <PREFIX>_<ulid>.
func UniqueReference(prefix string, at time.Time) string {
	return prefix + "_" + newULID(at)
}

// TransactionCode is the public handle of a transaction.
func TransactionCode(at time.Time) string {
	return "txn_" + strings.ToLower(newULID(at))
}

func newULID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}
