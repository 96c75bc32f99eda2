package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  SubscriptionService
	testData struct {
		plan         *plan.Plan
		inactivePlan *plan.Plan
		card         paymentmethod.Card
		userID       string
	}
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ClearStores()
	s.service = NewSubscriptionService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.setupTestData()
}

func newTestServiceParams(b *testutil.BaseServiceTestSuite) ServiceParams {
	stores := b.GetStores()
	return NewServiceParams(
		b.GetLogger(),
		b.GetConfig(),
		b.GetDB(),
		stores.PlanRepo,
		stores.PaymentMethodRepo,
		stores.SubscriptionRepo,
		stores.InvoiceRepo,
		b.GetWebhookPublisher(),
	)
}

func (s *SubscriptionServiceSuite) setupTestData() {
	ctx := s.GetContext()

	s.testData.userID = "user_subscriber"
	s.testData.card = paymentmethod.Card{CardType: "VISA", Last4: "4242", ExpiryDate: "12/30"}

	s.testData.plan = plan.New("Pro", "Pro monthly", decimal.NewFromInt(49), types.CurrencyUSD, types.BillingCycleMonthly)
	s.NoError(s.GetStores().PlanRepo.Create(ctx, s.testData.plan))

	s.testData.inactivePlan = plan.New("Legacy", "", decimal.NewFromInt(9), types.CurrencyUSD, types.BillingCycleMonthly)
	s.testData.inactivePlan.IsActive = false
	s.NoError(s.GetStores().PlanRepo.Create(ctx, s.testData.inactivePlan))
}

func (s *SubscriptionServiceSuite) createRequest() *dto.CreateSubscriptionRequest {
	return &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
		Card:   s.testData.card,
	}
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	ctx := s.GetContext()

	sub, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)

	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal(s.testData.plan.ID, sub.PlanID)
	s.Require().NotNil(sub.NextBillingDate)

	expected, err := types.NextBillingDate(time.Now().UTC(), types.BillingCycleMonthly)
	s.Require().NoError(err)
	s.True(expected.Equal(*sub.NextBillingDate))

	pm, err := s.GetStores().PaymentMethodRepo.Get(ctx, s.testData.userID, sub.PaymentMethodID)
	s.Require().NoError(err)
	s.True(pm.IsDefault)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, sub.ID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal("INV-0001", invoices[0].InvoiceNumber)
	s.Equal(types.InvoiceStatusPaid, invoices[0].Status)
	s.Equal(types.InvoiceBillingReasonSubscriptionCreate, invoices[0].BillingReason)
	s.True(s.testData.plan.Price.Equal(invoices[0].Amount))
	s.Equal(pm.ID, invoices[0].PaymentMethodID)

	s.Len(s.GetWebhookEvents(types.WebhookEventSubscriptionCreated), 1)
	s.Len(s.GetWebhookEvents(types.WebhookEventInvoicePaid), 1)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionValidation() {
	ctx := s.GetContext()

	tests := []struct {
		name    string
		userID  string
		req     *dto.CreateSubscriptionRequest
		checkFn func(error) bool
	}{
		{
			name:    "missing user",
			userID:  "",
			req:     s.createRequest(),
			checkFn: ierr.IsValidation,
		},
		{
			name:    "missing plan id",
			userID:  s.testData.userID,
			req:     &dto.CreateSubscriptionRequest{Card: s.testData.card},
			checkFn: ierr.IsValidation,
		},
		{
			name:   "bad expiry",
			userID: s.testData.userID,
			req: &dto.CreateSubscriptionRequest{
				PlanID: s.testData.plan.ID,
				Card:   paymentmethod.Card{CardType: "VISA", Last4: "4242", ExpiryDate: "13/30"},
			},
			checkFn: ierr.IsValidation,
		},
		{
			name:    "unknown plan",
			userID:  s.testData.userID,
			req:     &dto.CreateSubscriptionRequest{PlanID: "plan_missing", Card: s.testData.card},
			checkFn: ierr.IsNotFound,
		},
		{
			name:    "inactive plan",
			userID:  s.testData.userID,
			req:     &dto.CreateSubscriptionRequest{PlanID: s.testData.inactivePlan.ID, Card: s.testData.card},
			checkFn: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateSubscription(ctx, tt.userID, tt.req)
			s.Require().Error(err)
			s.True(tt.checkFn(err), "unexpected error: %v", err)
		})
	}

	count, err := s.GetStores().SubscriptionRepo.Count(ctx, nil, nil)
	s.NoError(err)
	s.Zero(count)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRejectsSecondActive() {
	ctx := s.GetContext()

	_, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)

	other := plan.New("Team", "", decimal.NewFromInt(99), types.CurrencyUSD, types.BillingCycleYearly)
	s.Require().NoError(s.GetStores().PlanRepo.Create(ctx, other))

	_, err = s.service.CreateSubscription(ctx, s.testData.userID, &dto.CreateSubscriptionRequest{
		PlanID: other.ID,
		Card:   s.testData.card,
	})
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	invoices, err := s.GetStores().InvoiceRepo.ListByUser(ctx, s.testData.userID)
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *SubscriptionServiceSuite) TestConcurrentCreateKeepsOneActive() {
	ctx := s.GetContext()

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case ierr.IsConflict(err):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(attempts-1, conflicts)

	filter := types.NewSubscriptionFilter()
	filter.UserID = s.testData.userID
	filter.SubscriptionStatus = []types.SubscriptionStatus{types.SubscriptionStatusActive}
	active, err := s.GetStores().SubscriptionRepo.List(ctx, filter)
	s.NoError(err)
	s.Len(active, 1)

	methods, err := s.GetStores().PaymentMethodRepo.List(ctx, s.testData.userID)
	s.NoError(err)
	s.Len(methods, 1)

	invoices, err := s.GetStores().InvoiceRepo.ListByUser(ctx, s.testData.userID)
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRollsBackOnInvoiceFailure() {
	ctx := s.GetContext()

	s.GetStores().InvoiceRepo.FailCreate(errors.New("disk full"), 1)

	_, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().Error(err)

	count, err := s.GetStores().SubscriptionRepo.Count(ctx, nil, nil)
	s.NoError(err)
	s.Zero(count)

	invoiceCount, err := s.GetStores().InvoiceRepo.Count(ctx, nil, nil)
	s.NoError(err)
	s.Zero(invoiceCount)
	s.Empty(s.GetWebhookEvents(""))

	// the card stays on file and the invoice number was released
	methods, err := s.GetStores().PaymentMethodRepo.List(ctx, s.testData.userID)
	s.NoError(err)
	s.Len(methods, 1)

	sub, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)
	s.Equal(methods[0].ID, sub.PaymentMethodID)

	invoices, err := s.GetStores().InvoiceRepo.ListBySubscription(ctx, sub.ID)
	s.NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal("INV-0001", invoices[0].InvoiceNumber)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionReusesCardOnFile() {
	ctx := s.GetContext()

	pm := paymentmethod.New(s.testData.userID, s.testData.card)
	s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(ctx, pm))

	sub, err := s.service.CreateSubscription(ctx, s.testData.userID, &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
		Card:   paymentmethod.Card{CardType: " visa", Last4: "4242", ExpiryDate: "12/30"},
	})
	s.Require().NoError(err)
	s.Equal(pm.ID, sub.PaymentMethodID)
}

func (s *SubscriptionServiceSuite) TestCancelSubscription() {
	ctx := s.GetContext()

	sub, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)

	s.Run("other user gets not found", func() {
		err := s.service.CancelSubscription(ctx, sub.ID, "user_other")
		s.Require().Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("owner cancels", func() {
		s.Require().NoError(s.service.CancelSubscription(ctx, sub.ID, s.testData.userID))

		got, err := s.service.GetSubscription(ctx, sub.ID, s.testData.userID)
		s.Require().NoError(err)
		s.Equal(types.SubscriptionStatusCancelled, got.Status)
		s.True(got.CancellationRequested)
		s.Nil(got.NextBillingDate)
		s.Len(s.GetWebhookEvents(types.WebhookEventSubscriptionCancelled), 1)
	})

	s.Run("second cancel is invalid", func() {
		err := s.service.CancelSubscription(ctx, sub.ID, s.testData.userID)
		s.Require().Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("unknown id", func() {
		err := s.service.CancelSubscription(ctx, "subs_missing", s.testData.userID)
		s.Require().Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("user can subscribe again", func() {
		_, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
		s.NoError(err)
	})
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionsForUser() {
	ctx := s.GetContext()

	first, err := s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)
	s.Require().NoError(s.service.CancelSubscription(ctx, first.ID, s.testData.userID))
	_, err = s.service.CreateSubscription(ctx, s.testData.userID, s.createRequest())
	s.Require().NoError(err)
	_, err = s.service.CreateSubscription(ctx, "user_other", s.createRequest())
	s.Require().NoError(err)

	subs, err := s.service.GetSubscriptionsForUser(ctx, s.testData.userID)
	s.Require().NoError(err)
	s.Len(subs, 2)
	for _, sub := range subs {
		s.Equal(s.testData.userID, sub.UserID)
	}

	_, err = s.service.GetSubscription(ctx, first.ID, "user_other")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetSubscriptionsForUser(ctx, "")
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestCancelledSubscriptionIsNeverCharged() {
	ctx := s.GetContext()
	planService := NewPlanService(newTestServiceParams(&s.BaseServiceTestSuite))

	p, err := planService.CreatePlan(ctx, &dto.CreatePlanRequest{
		Name:         "Ten",
		Price:        decimal.NewFromInt(10),
		Currency:     "USD",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().NoError(err)

	sub, err := s.service.CreateSubscription(ctx, s.testData.userID, &dto.CreateSubscriptionRequest{
		PlanID: p.ID,
		Card:   s.testData.card,
	})
	s.Require().NoError(err)
	due := *sub.NextBillingDate

	invoices, err := s.GetStores().InvoiceRepo.ListByUser(ctx, s.testData.userID)
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.True(decimal.NewFromInt(10).Equal(invoices[0].Amount))

	s.Require().NoError(s.service.CancelSubscription(ctx, sub.ID, s.testData.userID))

	billing := s.service.(*subscriptionService)
	resp, err := billing.chargeAt(ctx, due)
	s.Require().NoError(err)
	s.Empty(resp.Items)

	invoices, err = s.GetStores().InvoiceRepo.ListByUser(ctx, s.testData.userID)
	s.Require().NoError(err)
	s.Len(invoices, 1)
}
