package invoice

import (
	"time"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is an immutable record of a charge
type Invoice struct {
	ID              string                     `db:"id" json:"id"`
	InvoiceNumber   string                     `db:"invoice_number" json:"invoice_number"`
	UserID          string                     `db:"user_id" json:"user_id"`
	SubscriptionID  string                     `db:"subscription_id" json:"subscription_id"`
	PaymentMethodID string                     `db:"payment_method_id" json:"payment_method_id"`
	Amount          decimal.Decimal            `db:"amount" json:"amount"`
	Currency        types.Currency             `db:"currency" json:"currency"`
	Status          types.InvoiceStatus        `db:"status" json:"status"`
	BillingReason   types.InvoiceBillingReason `db:"billing_reason" json:"billing_reason"`
	CreatedAt       time.Time                  `db:"created_at" json:"created_at"`
}

// NewPaid builds a PAID invoice for a charge taken against a payment method
func NewPaid(
	number string,
	userID string,
	subscriptionID string,
	paymentMethodID string,
	amount decimal.Decimal,
	currency types.Currency,
	reason types.InvoiceBillingReason,
) *Invoice {
	return &Invoice{
		ID:              types.NewID(types.IDPrefixInvoice),
		InvoiceNumber:   number,
		UserID:          userID,
		SubscriptionID:  subscriptionID,
		PaymentMethodID: paymentMethodID,
		Amount:          amount,
		Currency:        currency,
		Status:          types.InvoiceStatusPaid,
		BillingReason:   reason,
		CreatedAt:       time.Now().UTC(),
	}
}
