package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/sourcegraph/conc/pool"
)

func (s *subscriptionService) MarkExpiredSubscriptionsAsInactive(ctx context.Context) (int, error) {
	return s.markExpiredAt(ctx, time.Now().UTC())
}

// markExpiredAt moves every ACTIVE subscription whose billing date is
// before the UTC day of now to INACTIVE. Running it again is a no-op.
func (s *subscriptionService) markExpiredAt(ctx context.Context, now time.Time) (int, error) {
	cutoff := types.StartOfDayUTC(now)

	s.Logger.Infow("marking expired subscriptions inactive", "cutoff", cutoff)

	var expired []*subscription.Subscription
	err := s.retryTransient(ctx, func() error {
		var err error
		expired, err = s.SubRepo.MarkExpired(ctx, cutoff)
		return err
	})
	if err != nil {
		s.Logger.Errorw("failed to mark expired subscriptions",
			"cutoff", cutoff,
			"error", err,
		)
		return 0, err
	}

	for _, sub := range expired {
		s.Logger.Infow("subscription expired",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
		)
		s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionExpired, sub)
	}

	s.Logger.Infow("completed marking expired subscriptions",
		"cutoff", cutoff,
		"expired", len(expired),
	)
	return len(expired), nil
}

func (s *subscriptionService) ChargeActiveSubscriptions(ctx context.Context) (*dto.SubscriptionSweepResponse, error) {
	return s.chargeAt(ctx, time.Now().UTC())
}

// chargeAt renews every ACTIVE subscription billed on the UTC day of now.
// Each subscription is charged in its own transaction, a failure is
// counted and logged without affecting the others.
func (s *subscriptionService) chargeAt(ctx context.Context, now time.Time) (*dto.SubscriptionSweepResponse, error) {
	filter := types.NewDueSubscriptionFilter(now)

	s.Logger.Infow("starting subscription charge sweep",
		"from", filter.NextBillingDateFrom,
		"before", filter.NextBillingDateBefore,
	)

	var due []*subscription.Subscription
	err := s.retryTransient(ctx, func() error {
		var err error
		due, err = s.SubRepo.List(ctx, filter)
		return err
	})
	if err != nil {
		s.Logger.Errorw("failed to list subscriptions due for charge", "error", err)
		return nil, err
	}

	response := dto.NewSubscriptionSweepResponse(now)

	p := pool.NewWithResults[*dto.SubscriptionSweepItem]().
		WithMaxGoroutines(s.sweepConcurrency())
	for _, sub := range due {
		p.Go(func() *dto.SubscriptionSweepItem {
			return s.chargeSubscription(ctx, sub)
		})
	}
	for _, item := range p.Wait() {
		response.Add(item)
	}

	s.Logger.Infow("completed subscription charge sweep",
		"due", len(due),
		"charged", response.TotalCharged,
		"skipped", response.TotalSkipped,
		"failed", response.TotalFailed,
	)
	return response, nil
}

func (s *subscriptionService) chargeSubscription(ctx context.Context, sub *subscription.Subscription) *dto.SubscriptionSweepItem {
	item := &dto.SubscriptionSweepItem{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
	}
	skip := func(reason string) *dto.SubscriptionSweepItem {
		s.Logger.Warnw("skipping subscription charge",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"reason", reason,
		)
		item.Outcome = dto.ChargeOutcomeSkipped
		item.Reason = reason
		return item
	}
	fail := func(err error) *dto.SubscriptionSweepItem {
		s.Logger.Errorw("failed to charge subscription",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"error", err,
		)
		item.Outcome = dto.ChargeOutcomeFailed
		item.Reason = err.Error()
		return item
	}

	if sub.NextBillingDate == nil {
		return skip("subscription has no billing date")
	}

	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return skip("plan not found")
		}
		return fail(err)
	}

	pm, err := s.chargeablePaymentMethod(ctx, sub)
	if err != nil {
		return fail(err)
	}
	if pm == nil {
		return skip("no payment method on file")
	}

	observed := *sub.NextBillingDate
	if pm.Card().ExpiresBefore(observed) {
		// no processor to decline it, so the charge is still recorded
		s.Logger.Warnw("charging an expired card",
			"subscription_id", sub.ID,
			"payment_method_id", pm.ID,
			"expiry_date", pm.ExpiryDate,
		)
	}

	next, err := types.NextBillingDate(observed, p.BillingCycle)
	if err != nil {
		return fail(err)
	}

	invoiceService := &invoiceService{ServiceParams: s.ServiceParams}

	var inv *invoice.Invoice
	err = s.retryTransient(ctx, func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			advanced, err := s.SubRepo.AdvanceBillingDate(ctx, sub.ID, observed, next)
			if err != nil {
				return err
			}
			if !advanced {
				return ierr.NewError("subscription already charged or no longer active").
					WithHint("Subscription changed since it was selected for charge").
					WithReportableDetails(map[string]any{
						"subscription_id": sub.ID,
					}).
					Mark(ierr.ErrConflict)
			}

			created, err := invoiceService.createPaidInvoice(ctx, sub, pm.ID, p, types.InvoiceBillingReasonSubscriptionCycle)
			if err != nil {
				return err
			}
			inv = created
			return nil
		})
	})
	if err != nil {
		if ierr.IsConflict(err) {
			return skip("already charged or no longer active")
		}
		return fail(err)
	}

	s.Logger.Infow("charged subscription",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"invoice_number", inv.InvoiceNumber,
		"amount", inv.Amount.String(),
		"currency", inv.Currency,
		"next_billing_date", next,
	)

	invoiceService.publishInvoicePaid(ctx, inv)

	item.Outcome = dto.ChargeOutcomeCharged
	item.InvoiceNumber = inv.InvoiceNumber
	item.NextBillingDate = &next
	return item
}

// chargeablePaymentMethod loads the method the subscription was created
// with. The foreign key keeps it on file, so nil only means the row belongs
// to another user.
func (s *subscriptionService) chargeablePaymentMethod(ctx context.Context, sub *subscription.Subscription) (*paymentmethod.PaymentMethod, error) {
	pm, err := s.PaymentMethodRepo.Get(ctx, sub.UserID, sub.PaymentMethodID)
	if ierr.IsNotFound(err) {
		return nil, nil
	}
	return pm, err
}

// retryTransient retries fn with exponential backoff while it fails with a
// serialization failure, deadlock or lock timeout
func (s *subscriptionService) retryTransient(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	maxRetries := s.Config.Billing.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !postgres.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		s.Logger.Warnw("retrying after transient database error",
			"error", err,
			"wait", wait,
		)
	})
}

func (s *subscriptionService) sweepConcurrency() int {
	if s.Config.Billing.SweepConcurrency < 1 {
		return 1
	}
	return s.Config.Billing.SweepConcurrency
}
