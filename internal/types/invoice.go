package types

import (
	"fmt"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/samber/lo"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusPending,
		InvoiceStatusPaid,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Invalid invoice status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceBillingReason records why an invoice was issued
type InvoiceBillingReason string

const (
	// InvoiceBillingReasonSubscriptionCreate is the first charge taken when a subscription starts
	InvoiceBillingReasonSubscriptionCreate InvoiceBillingReason = "SUBSCRIPTION_CREATE"
	// InvoiceBillingReasonSubscriptionCycle is a renewal charge taken by the billing sweep
	InvoiceBillingReasonSubscriptionCycle InvoiceBillingReason = "SUBSCRIPTION_CYCLE"
)

func (r InvoiceBillingReason) String() string {
	return string(r)
}

func (r InvoiceBillingReason) Validate() error {
	allowed := []InvoiceBillingReason{
		InvoiceBillingReasonSubscriptionCreate,
		InvoiceBillingReasonSubscriptionCycle,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid invoice billing reason").
			WithHint("Invalid invoice billing reason").
			WithReportableDetails(map[string]any{
				"billing_reason":         r,
				"allowed_billing_reason": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

const (
	// InvoiceNumberPrefix is prepended to the zero padded sequence value
	InvoiceNumberPrefix = "INV"
	// DefaultInvoiceCounterName is the invoice_counters row used when none is configured
	DefaultInvoiceCounterName = "invoice"
)

// FormatInvoiceNumber renders a sequence value as INV-0001. Values wider
// than four digits are printed in full.
func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("%s-%04d", InvoiceNumberPrefix, seq)
}
