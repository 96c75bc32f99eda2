package service

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
	webhookDto "github.com/flexprice/subscriptions/internal/webhook/dto"
)

type InvoiceService interface {
	GetInvoice(ctx context.Context, id, userID string) (*invoice.Invoice, error)
	ListInvoicesForUser(ctx context.Context, userID string) ([]*invoice.Invoice, error)
	ListInvoicesForSubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

// GetInvoice hides invoices of other users behind NotFound
func (s *invoiceService) GetInvoice(ctx context.Context, id, userID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s not found", id).
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *invoiceService) ListInvoicesForUser(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	return s.InvoiceRepo.ListByUser(ctx, userID)
}

func (s *invoiceService) ListInvoicesForSubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	return s.InvoiceRepo.ListBySubscription(ctx, subscriptionID)
}

// createPaidInvoice takes the next invoice number and records a PAID
// invoice for one period of p. It must run inside the caller's
// transaction so a rollback also gives the number back.
func (s *invoiceService) createPaidInvoice(
	ctx context.Context,
	sub *subscription.Subscription,
	paymentMethodID string,
	p *plan.Plan,
	reason types.InvoiceBillingReason,
) (*invoice.Invoice, error) {
	number, err := s.InvoiceRepo.GetNextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	inv := invoice.NewPaid(number, sub.UserID, sub.ID, paymentMethodID, p.Price, p.Currency, reason)
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) publishInvoicePaid(ctx context.Context, inv *invoice.Invoice) {
	s.publishWebhookEvent(ctx, types.WebhookEventInvoicePaid, inv.UserID,
		webhookDto.NewInvoiceWebhookPayload(types.WebhookEventInvoicePaid, inv))
}
