package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) CreateSubscription(ctx context.Context, userID string, req *dto.CreateSubscriptionRequest) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) CancelSubscription(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockSubscriptionService) GetSubscription(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetSubscriptionsForUser(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) MarkExpiredSubscriptionsAsInactive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSubscriptionService) ChargeActiveSubscriptions(ctx context.Context) (*dto.SubscriptionSweepResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubscriptionSweepResponse), args.Error(1)
}

func newTestScheduler(svc *MockSubscriptionService, schedule string) *Scheduler {
	cfg := config.GetDefaultConfig()
	cfg.Billing.SweepSchedule = schedule
	return NewScheduler(cfg, svc, logger.NewNopLogger())
}

func TestRunOnceExpiresBeforeCharging(t *testing.T) {
	svc := new(MockSubscriptionService)
	charge := dto.NewSubscriptionSweepResponse(time.Now().UTC())
	charge.Add(&dto.SubscriptionSweepItem{SubscriptionID: "subs_1", Outcome: dto.ChargeOutcomeCharged})

	var order []string
	svc.On("MarkExpiredSubscriptionsAsInactive", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "expire") }).
		Return(2, nil).Once()
	svc.On("ChargeActiveSubscriptions", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "charge") }).
		Return(charge, nil).Once()

	resp, err := newTestScheduler(svc, "0 0 * * *").RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"expire", "charge"}, order)
	assert.Equal(t, 2, resp.Expired)
	assert.Equal(t, 1, resp.Charge.TotalCharged)
	svc.AssertExpectations(t)
}

func TestRunOnceChargesWhenExpiryFails(t *testing.T) {
	svc := new(MockSubscriptionService)
	expireErr := errors.New("connection reset")

	svc.On("MarkExpiredSubscriptionsAsInactive", mock.Anything).Return(0, expireErr).Once()
	svc.On("ChargeActiveSubscriptions", mock.Anything).
		Return(dto.NewSubscriptionSweepResponse(time.Now().UTC()), nil).Once()

	resp, err := newTestScheduler(svc, "0 0 * * *").RunOnce(context.Background())
	assert.ErrorIs(t, err, expireErr)
	require.NotNil(t, resp.Charge)
	svc.AssertExpectations(t)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := newTestScheduler(new(MockSubscriptionService), "not a schedule")

	err := s.Start()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.True(t, s.NextRun().IsZero())
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(new(MockSubscriptionService), "0 0 * * *")

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	next := s.NextRun()
	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestCronRunSwallowsErrors(t *testing.T) {
	svc := new(MockSubscriptionService)
	svc.On("MarkExpiredSubscriptionsAsInactive", mock.Anything).Return(0, errors.New("down")).Once()
	svc.On("ChargeActiveSubscriptions", mock.Anything).Return(nil, errors.New("down")).Once()

	s := newTestScheduler(svc, "0 0 * * *")
	assert.NotPanics(t, s.run)
	svc.AssertExpectations(t)
}
