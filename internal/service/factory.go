package service

import (
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	webhookPublisher "github.com/flexprice/subscriptions/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	PlanRepo          plan.Repository
	PaymentMethodRepo paymentmethod.Repository
	SubRepo           subscription.Repository
	InvoiceRepo       invoice.Repository

	// Publishers
	WebhookPublisher webhookPublisher.WebhookPublisher
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	planRepo plan.Repository,
	paymentMethodRepo paymentmethod.Repository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	webhookPublisher webhookPublisher.WebhookPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		PlanRepo:          planRepo,
		PaymentMethodRepo: paymentMethodRepo,
		SubRepo:           subRepo,
		InvoiceRepo:       invoiceRepo,
		WebhookPublisher:  webhookPublisher,
	}
}
