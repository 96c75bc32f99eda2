package types

import (
	"time"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the lifecycle state of a subscription.
// ACTIVE may move to CANCELLED (user) or INACTIVE (missed payment),
// both of which are terminal.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusInactive  SubscriptionStatus = "INACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusInactive,
		SubscriptionStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further transition is allowed out of s
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusInactive || s == SubscriptionStatusCancelled
}

// SubscriptionFilter narrows subscription listings. Zero values are ignored.
type SubscriptionFilter struct {
	UserID              string               `json:"user_id,omitempty" form:"user_id"`
	PlanID              string               `json:"plan_id,omitempty" form:"plan_id"`
	SubscriptionStatus  []SubscriptionStatus `json:"subscription_status,omitempty" form:"subscription_status"`
	NextBillingDateFrom *time.Time           `json:"next_billing_date_from,omitempty"`
	// NextBillingDateBefore is exclusive
	NextBillingDateBefore *time.Time `json:"next_billing_date_before,omitempty"`
	Limit                 int        `json:"limit,omitempty" form:"limit"`
}

// NewSubscriptionFilter returns a filter with no constraints
func NewSubscriptionFilter() *SubscriptionFilter {
	return &SubscriptionFilter{}
}

// NewDueSubscriptionFilter selects ACTIVE subscriptions billed on the UTC day of now
func NewDueSubscriptionFilter(now time.Time) *SubscriptionFilter {
	return &SubscriptionFilter{
		SubscriptionStatus:    []SubscriptionStatus{SubscriptionStatusActive},
		NextBillingDateFrom:   lo.ToPtr(StartOfDayUTC(now)),
		NextBillingDateBefore: lo.ToPtr(StartOfNextDayUTC(now)),
	}
}

func (f *SubscriptionFilter) Validate() error {
	if f == nil {
		return nil
	}

	for _, status := range f.SubscriptionStatus {
		if err := status.Validate(); err != nil {
			return err
		}
	}

	if f.NextBillingDateFrom != nil && f.NextBillingDateBefore != nil && !f.NextBillingDateFrom.Before(*f.NextBillingDateBefore) {
		return ierr.NewError("next_billing_date_from must be before next_billing_date_before").
			WithHint("Invalid billing date range").
			Mark(ierr.ErrValidation)
	}

	if f.Limit < 0 {
		return ierr.NewError("limit must be non negative").
			WithHint("Invalid limit").
			Mark(ierr.ErrValidation)
	}
	return nil
}
