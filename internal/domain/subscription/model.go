package subscription

import (
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

type Subscription struct {
	ID              string                   `db:"id" json:"id"`
	UserID          string                   `db:"user_id" json:"user_id"`
	PlanID          string                   `db:"plan_id" json:"plan_id"`
	PaymentMethodID string                   `db:"payment_method_id" json:"payment_method_id"`
	Status          types.SubscriptionStatus `db:"status" json:"status"`
	// NextBillingDate is always 00:00 UTC and nil once cancelled
	NextBillingDate       *time.Time `db:"next_billing_date" json:"next_billing_date,omitempty"`
	CancellationRequested bool       `db:"cancellation_requested" json:"cancellation_requested"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// New builds an ACTIVE subscription due on nextBillingDate
func New(userID, planID, paymentMethodID string, nextBillingDate time.Time) *Subscription {
	now := time.Now().UTC()
	next := types.StartOfDayUTC(nextBillingDate)
	return &Subscription{
		ID:              types.NewID(types.IDPrefixSubscription),
		UserID:          userID,
		PlanID:          planID,
		PaymentMethodID: paymentMethodID,
		Status:          types.SubscriptionStatusActive,
		NextBillingDate: &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Subscription) IsActive() bool {
	return s.Status == types.SubscriptionStatusActive
}

// MarkCancelled applies the user cancellation to the in-memory copy
func (s *Subscription) MarkCancelled(at time.Time) {
	s.Status = types.SubscriptionStatusCancelled
	s.CancellationRequested = true
	s.NextBillingDate = nil
	s.UpdatedAt = at
}

// IsDueOn reports whether the subscription is ACTIVE and billed on the UTC day of t
func (s *Subscription) IsDueOn(t time.Time) bool {
	if !s.IsActive() || s.NextBillingDate == nil {
		return false
	}
	return types.StartOfDayUTC(*s.NextBillingDate).Equal(types.StartOfDayUTC(t))
}

// IsExpiredAt reports whether an ACTIVE subscription missed its billing date before the UTC day of t
func (s *Subscription) IsExpiredAt(t time.Time) bool {
	if !s.IsActive() || s.NextBillingDate == nil {
		return false
	}
	return s.NextBillingDate.Before(types.StartOfDayUTC(t))
}
