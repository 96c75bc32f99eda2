package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionBillingSuite struct {
	testutil.BaseServiceTestSuite
	service  *subscriptionService
	testData struct {
		monthly *plan.Plan
		yearly  *plan.Plan
		now     time.Time
	}
}

func TestSubscriptionBilling(t *testing.T) {
	suite.Run(t, new(SubscriptionBillingSuite))
}

func (s *SubscriptionBillingSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ClearStores()
	s.service = &subscriptionService{ServiceParams: newTestServiceParams(&s.BaseServiceTestSuite)}

	ctx := s.GetContext()
	s.testData.now = time.Date(2024, time.January, 31, 9, 30, 0, 0, time.UTC)

	s.testData.monthly = plan.New("Monthly", "", decimal.RequireFromString("19.99"), types.CurrencyUSD, types.BillingCycleMonthly)
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, s.testData.monthly))

	s.testData.yearly = plan.New("Yearly", "", decimal.NewFromInt(199), types.CurrencyEUR, types.BillingCycleYearly)
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, s.testData.yearly))
}

// seedSubscription stores a user with a default card and an ACTIVE
// subscription to p due on due
func (s *SubscriptionBillingSuite) seedSubscription(userID string, p *plan.Plan, due time.Time) *subscription.Subscription {
	ctx := s.GetContext()

	pm := paymentmethod.New(userID, paymentmethod.Card{CardType: "VISA", Last4: "4242", ExpiryDate: "12/30"})
	s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(ctx, pm))

	sub := subscription.New(userID, p.ID, pm.ID, due)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))
	return sub
}

func (s *SubscriptionBillingSuite) getSubscription(id string) *subscription.Subscription {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sub
}

func (s *SubscriptionBillingSuite) TestChargeAdvancesBillingDate() {
	ctx := s.GetContext()

	monthly := s.seedSubscription("user_monthly", s.testData.monthly, s.testData.now)
	yearly := s.seedSubscription("user_yearly", s.testData.yearly, s.testData.now)
	later := s.seedSubscription("user_later", s.testData.monthly, s.testData.now.AddDate(0, 0, 1))

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(2, resp.TotalCharged)
	s.Zero(resp.TotalSkipped)
	s.Zero(resp.TotalFailed)

	// Jan 31 clamps to the end of February
	s.Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), *s.getSubscription(monthly.ID).NextBillingDate)
	s.Equal(time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), *s.getSubscription(yearly.ID).NextBillingDate)
	s.Equal(*later.NextBillingDate, *s.getSubscription(later.ID).NextBillingDate)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, yearly.ID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal(types.InvoiceBillingReasonSubscriptionCycle, invoices[0].BillingReason)
	s.Equal(types.CurrencyEUR, invoices[0].Currency)
	s.True(decimal.NewFromInt(199).Equal(invoices[0].Amount))

	s.Len(s.GetWebhookEvents(types.WebhookEventInvoicePaid), 2)
}

func (s *SubscriptionBillingSuite) TestChargeTwiceOnSameDayBillsOnce() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	first, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, first.TotalCharged)

	second, err := s.service.chargeAt(ctx, s.testData.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Zero(second.TotalCharged)
	s.Empty(second.Items)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, sub.ID)
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *SubscriptionBillingSuite) TestChargeSkipsStaleSelection() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	// a concurrent sweep already moved the date forward
	stale := s.getSubscription(sub.ID)
	next := types.AddClampedDate(*stale.NextBillingDate, 0, 1, 0)
	advanced, err := s.GetStores().SubscriptionRepo.AdvanceBillingDate(ctx, sub.ID, *stale.NextBillingDate, next)
	s.Require().NoError(err)
	s.Require().True(advanced)

	item := s.service.chargeSubscription(ctx, stale)
	s.Equal(dto.ChargeOutcomeSkipped, item.Outcome)

	count, err := s.GetStores().InvoiceRepo.Count(ctx, nil, nil)
	s.NoError(err)
	s.Zero(count)
}

func (s *SubscriptionBillingSuite) TestChargeDistinctInvoiceNumbers() {
	ctx := s.GetContext()

	const users = 25
	for i := 0; i < users; i++ {
		s.seedSubscription(fmt.Sprintf("user_%02d", i), s.testData.monthly, s.testData.now)
	}

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(users, resp.TotalCharged)

	numbers := lo.Map(resp.Items, func(item *dto.SubscriptionSweepItem, _ int) string {
		return item.InvoiceNumber
	})
	s.Len(lo.Uniq(numbers), users)
	s.Contains(numbers, "INV-0001")
	s.Contains(numbers, fmt.Sprintf("INV-%04d", users))
}

func (s *SubscriptionBillingSuite) TestChargeRetriesTransientFailure() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	s.GetStores().InvoiceRepo.FailCreate(&pq.Error{Code: "40001", Message: "could not serialize access"}, 1)

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, resp.TotalCharged)
	s.Equal("INV-0001", resp.Items[0].InvoiceNumber)

	s.Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), *s.getSubscription(sub.ID).NextBillingDate)
}

func (s *SubscriptionBillingSuite) TestChargeFailureIsIsolated() {
	ctx := s.GetContext()
	failing := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	s.GetStores().InvoiceRepo.FailCreate(errors.New("boom"), 1)

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, resp.TotalFailed)
	s.Equal(dto.ChargeOutcomeFailed, resp.Items[0].Outcome)

	// the failed transaction left the subscription due so the next run picks it up
	s.Equal(types.StartOfDayUTC(s.testData.now), *s.getSubscription(failing.ID).NextBillingDate)

	retry, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, retry.TotalCharged)
	s.Equal("INV-0001", retry.Items[0].InvoiceNumber)
}

func (s *SubscriptionBillingSuite) TestChargeSkipsWithoutPaymentMethod() {
	ctx := s.GetContext()

	sub := subscription.New("user_1", s.testData.monthly.ID, "pm_unknown", s.testData.now)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, resp.TotalSkipped)
	s.Equal("no payment method on file", resp.Items[0].Reason)
	s.Equal(*sub.NextBillingDate, *s.getSubscription(sub.ID).NextBillingDate)
}

func (s *SubscriptionBillingSuite) TestChargedPaymentMethodCannotBeRemoved() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	backup := paymentmethod.New(sub.UserID, paymentmethod.Card{CardType: "MASTERCARD", Last4: "5555", ExpiryDate: "01/31"})
	s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(ctx, backup))

	removed, err := s.GetStores().PaymentMethodRepo.Remove(ctx, sub.UserID, sub.PaymentMethodID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.False(removed)

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Require().Equal(1, resp.TotalCharged)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, sub.ID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal(sub.PaymentMethodID, invoices[0].PaymentMethodID)

	// an unreferenced card can still be removed
	removed, err = s.GetStores().PaymentMethodRepo.Remove(ctx, sub.UserID, backup.ID)
	s.Require().NoError(err)
	s.True(removed)
}

func (s *SubscriptionBillingSuite) TestChargeIgnoresSubscriptionsDueTomorrow() {
	ctx := s.GetContext()
	tomorrow := s.seedSubscription("user_tomorrow", s.testData.monthly, types.StartOfNextDayUTC(s.testData.now))

	lastInstant := types.StartOfNextDayUTC(s.testData.now).Add(-time.Microsecond)
	resp, err := s.service.chargeAt(ctx, lastInstant)
	s.Require().NoError(err)
	s.Zero(resp.TotalCharged)
	s.Empty(resp.Items)
	s.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *s.getSubscription(tomorrow.ID).NextBillingDate)

	resp, err = s.service.chargeAt(ctx, types.StartOfNextDayUTC(s.testData.now))
	s.Require().NoError(err)
	s.Equal(1, resp.TotalCharged)
}

func (s *SubscriptionBillingSuite) TestChargeSkipsMissingPlan() {
	ctx := s.GetContext()

	pm := paymentmethod.New("user_1", paymentmethod.Card{CardType: "VISA", Last4: "4242", ExpiryDate: "12/30"})
	s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(ctx, pm))
	sub := subscription.New("user_1", "plan_deleted", pm.ID, s.testData.now)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))

	resp, err := s.service.chargeAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, resp.TotalSkipped)
	s.Equal("plan not found", resp.Items[0].Reason)
}

func (s *SubscriptionBillingSuite) TestMarkExpired() {
	ctx := s.GetContext()

	overdue := s.seedSubscription("user_overdue", s.testData.monthly, s.testData.now.AddDate(0, 0, -1))
	today := s.seedSubscription("user_today", s.testData.monthly, s.testData.now)
	future := s.seedSubscription("user_future", s.testData.monthly, s.testData.now.AddDate(0, 1, 0))

	expired, err := s.service.markExpiredAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Equal(1, expired)

	s.Equal(types.SubscriptionStatusInactive, s.getSubscription(overdue.ID).Status)
	s.Equal(types.SubscriptionStatusActive, s.getSubscription(today.ID).Status)
	s.Equal(types.SubscriptionStatusActive, s.getSubscription(future.ID).Status)
	s.Len(s.GetWebhookEvents(types.WebhookEventSubscriptionExpired), 1)

	again, err := s.service.markExpiredAt(ctx, s.testData.now)
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *SubscriptionBillingSuite) TestExpiredSubscriptionIsNotCharged() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now.AddDate(0, 0, -1))

	_, err := s.service.markExpiredAt(ctx, s.testData.now)
	s.Require().NoError(err)

	resp, err := s.service.chargeAt(ctx, s.testData.now.AddDate(0, 0, -1))
	s.Require().NoError(err)
	s.Empty(resp.Items)
	s.Equal(types.SubscriptionStatusInactive, s.getSubscription(sub.ID).Status)
}

func (s *SubscriptionBillingSuite) TestRenewalCycleEndToEnd() {
	ctx := s.GetContext()
	sub := s.seedSubscription("user_1", s.testData.monthly, s.testData.now)

	day := s.testData.now
	for i := 0; i < 3; i++ {
		_, err := s.service.markExpiredAt(ctx, day)
		s.Require().NoError(err)
		resp, err := s.service.chargeAt(ctx, day)
		s.Require().NoError(err)
		s.Require().Equal(1, resp.TotalCharged, "cycle %d", i)
		day = *s.getSubscription(sub.ID).NextBillingDate
	}

	// Jan 31 -> Feb 29 -> Mar 29 -> Apr 29
	s.Equal(time.Date(2024, time.April, 29, 0, 0, 0, 0, time.UTC), day)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal([]string{"INV-0001", "INV-0002", "INV-0003"}, lo.Map(invoices, func(inv *invoice.Invoice, _ int) string {
		return inv.InvoiceNumber
	}))

	// a missed day expires the subscription
	expired, err := s.service.markExpiredAt(ctx, day.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Equal(1, expired)
}
