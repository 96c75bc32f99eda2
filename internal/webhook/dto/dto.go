package dto

import (
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
)

// SubscriptionWebhookPayload is sent for subscription.created,
// subscription.cancelled and subscription.expired
type SubscriptionWebhookPayload struct {
	EventType    string                     `json:"event_type"`
	Subscription *subscription.Subscription `json:"subscription"`
}

func NewSubscriptionWebhookPayload(eventType string, sub *subscription.Subscription) *SubscriptionWebhookPayload {
	return &SubscriptionWebhookPayload{EventType: eventType, Subscription: sub}
}

// InvoiceWebhookPayload is sent for invoice.paid
type InvoiceWebhookPayload struct {
	EventType string           `json:"event_type"`
	Invoice   *invoice.Invoice `json:"invoice"`
}

func NewInvoiceWebhookPayload(eventType string, inv *invoice.Invoice) *InvoiceWebhookPayload {
	return &InvoiceWebhookPayload{EventType: eventType, Invoice: inv}
}
