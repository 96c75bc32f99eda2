package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
	webhookDto "github.com/flexprice/subscriptions/internal/webhook/dto"
)

// SubscriptionService drives the subscription lifecycle: interactive
// create and cancel plus the daily expire and charge sweep
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, userID string, req *dto.CreateSubscriptionRequest) (*subscription.Subscription, error)
	CancelSubscription(ctx context.Context, id, userID string) error
	GetSubscription(ctx context.Context, id, userID string) (*subscription.Subscription, error)
	GetSubscriptionsForUser(ctx context.Context, userID string) ([]*subscription.Subscription, error)

	// MarkExpiredSubscriptionsAsInactive returns the number of subscriptions moved to INACTIVE
	MarkExpiredSubscriptionsAsInactive(ctx context.Context) (int, error)
	ChargeActiveSubscriptions(ctx context.Context) (*dto.SubscriptionSweepResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, userID string, req *dto.CreateSubscriptionRequest) (*subscription.Subscription, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ierr.NewError("plan is not active").
			WithHint("This plan is no longer available").
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	if err := s.ensureNoActiveSubscription(ctx, userID); err != nil {
		return nil, err
	}

	pm, err := NewPaymentMethodService(s.ServiceParams).ResolvePaymentMethod(ctx, userID, req.Card)
	if err != nil {
		return nil, err
	}

	nextBillingDate, err := types.NextBillingDate(time.Now().UTC(), p.BillingCycle)
	if err != nil {
		return nil, err
	}

	sub := subscription.New(userID, p.ID, pm.ID, nextBillingDate)
	invoiceService := &invoiceService{ServiceParams: s.ServiceParams}

	var inv *invoice.Invoice
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensureNoActiveSubscription(ctx, userID); err != nil {
			return err
		}

		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}

		created, err := invoiceService.createPaidInvoice(ctx, sub, pm.ID, p, types.InvoiceBillingReasonSubscriptionCreate)
		if err != nil {
			return err
		}
		inv = created
		return nil
	})
	if err != nil {
		s.Logger.Errorw("failed to create subscription",
			"user_id", userID,
			"plan_id", p.ID,
			"error", err,
		)
		return nil, err
	}

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"user_id", userID,
		"plan_id", p.ID,
		"invoice_number", inv.InvoiceNumber,
		"next_billing_date", sub.NextBillingDate,
	)

	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionCreated, sub)
	invoiceService.publishInvoicePaid(ctx, inv)

	return sub, nil
}

// ensureNoActiveSubscription enforces one ACTIVE subscription per user
// regardless of plan. Inside a transaction the unique index on active
// subscriptions is what finally settles a race.
func (s *subscriptionService) ensureNoActiveSubscription(ctx context.Context, userID string) error {
	active, err := s.SubRepo.GetActiveForUser(ctx, userID)
	if err != nil {
		return err
	}
	if active != nil {
		return ierr.NewError("user already has an active subscription").
			WithHint("You already have an active subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": active.ID,
				"plan_id":         active.PlanID,
			}).
			Mark(ierr.ErrConflict)
	}
	return nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id, userID string) error {
	sub, err := s.SubRepo.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}

	if !sub.IsActive() {
		return ierr.NewError("subscription is not active").
			WithHintf("Subscription is already %s", sub.Status).
			WithReportableDetails(map[string]any{
				"subscription_id": id,
				"status":          sub.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	cancelled, err := s.SubRepo.Cancel(ctx, id, userID)
	if err != nil {
		return err
	}
	if !cancelled {
		// expired or cancelled between the read and the write
		return ierr.NewError("subscription changed concurrently").
			WithHint("Subscription is no longer active").
			WithReportableDetails(map[string]any{
				"subscription_id": id,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	sub.MarkCancelled(time.Now().UTC())

	s.Logger.Infow("cancelled subscription",
		"subscription_id", id,
		"user_id", userID,
	)

	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionCancelled, sub)
	return nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	return s.SubRepo.GetForUser(ctx, id, userID)
}

func (s *subscriptionService) GetSubscriptionsForUser(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	filter := types.NewSubscriptionFilter()
	filter.UserID = userID
	return s.SubRepo.List(ctx, filter)
}

func (s *subscriptionService) publishSubscriptionEvent(ctx context.Context, eventName string, sub *subscription.Subscription) {
	s.publishWebhookEvent(ctx, eventName, sub.UserID,
		webhookDto.NewSubscriptionWebhookPayload(eventName, sub))
}
