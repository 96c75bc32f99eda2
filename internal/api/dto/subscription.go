package dto

import (
	"time"

	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/validator"
)

// CreateSubscriptionRequest subscribes the calling user to a plan, paying
// with the given card. The card is reused when already on file.
type CreateSubscriptionRequest struct {
	PlanID string             `json:"plan_id" validate:"required"`
	Card   paymentmethod.Card `json:"card" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return ValidateCardExpiry(r.Card)
}

// ValidateCardExpiry checks the MM/YY expiry format
func ValidateCardExpiry(card paymentmethod.Card) error {
	if _, err := time.Parse("01/06", card.Normalize().ExpiryDate); err != nil {
		return ierr.WithError(err).
			WithHint("Card expiry date must be in MM/YY format").
			WithReportableDetails(map[string]any{
				"expiry_date": card.ExpiryDate,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ChargeOutcome is the result of one subscription in a charge sweep
type ChargeOutcome string

const (
	ChargeOutcomeCharged ChargeOutcome = "charged"
	ChargeOutcomeSkipped ChargeOutcome = "skipped"
	ChargeOutcomeFailed  ChargeOutcome = "failed"
)

type SubscriptionSweepItem struct {
	SubscriptionID  string        `json:"subscription_id"`
	UserID          string        `json:"user_id"`
	Outcome         ChargeOutcome `json:"outcome"`
	InvoiceNumber   string        `json:"invoice_number,omitempty"`
	NextBillingDate *time.Time    `json:"next_billing_date,omitempty"`
	Reason          string        `json:"reason,omitempty"`
}

// SubscriptionSweepResponse reports a ChargeActiveSubscriptions run
type SubscriptionSweepResponse struct {
	Items        []*SubscriptionSweepItem `json:"items"`
	TotalCharged int                      `json:"total_charged"`
	TotalSkipped int                      `json:"total_skipped"`
	TotalFailed  int                      `json:"total_failed"`
	StartAt      time.Time                `json:"start_at"`
}

func NewSubscriptionSweepResponse(startAt time.Time) *SubscriptionSweepResponse {
	return &SubscriptionSweepResponse{
		Items:   make([]*SubscriptionSweepItem, 0),
		StartAt: startAt,
	}
}

// Add records item and bumps the matching total. Not safe for concurrent use.
func (r *SubscriptionSweepResponse) Add(item *SubscriptionSweepItem) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case ChargeOutcomeCharged:
		r.TotalCharged++
	case ChargeOutcomeSkipped:
		r.TotalSkipped++
	case ChargeOutcomeFailed:
		r.TotalFailed++
	}
}

type ExpireSubscriptionsResponse struct {
	Expired int `json:"expired"`
}

// SweepResponse reports one full scheduler cycle
type SweepResponse struct {
	Expired int                        `json:"expired"`
	Charge  *SubscriptionSweepResponse `json:"charge,omitempty"`
}
