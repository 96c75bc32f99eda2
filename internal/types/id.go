package types

import (
	"github.com/oklog/ulid/v2"
)

// IDPrefix scopes generated identifiers to an entity, e.g. subs_01HZX6Q9N8Y0V4C7W2B3M5K1TD
type IDPrefix string

const (
	IDPrefixPlan          IDPrefix = "plan"
	IDPrefixPaymentMethod IDPrefix = "pm"
	IDPrefixSubscription  IDPrefix = "subs"
	IDPrefixInvoice       IDPrefix = "inv"
	IDPrefixWebhookEvent  IDPrefix = "webhook"
)

// GenerateUUID returns a k-sortable ULID string
func GenerateUUID() string {
	return ulid.Make().String()
}

// NewID returns a prefixed ULID
func NewID(prefix IDPrefix) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return string(prefix) + "_" + GenerateUUID()
}
