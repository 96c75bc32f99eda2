package repository

import (
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	cachedRepo "github.com/flexprice/subscriptions/internal/repository/cached"
	postgresRepo "github.com/flexprice/subscriptions/internal/repository/postgres"
)

func NewPlanRepository(db *postgres.DB, c cache.Cache, logger *logger.Logger) plan.Repository {
	return cachedRepo.NewPlanRepository(postgresRepo.NewPlanRepository(db, logger), c, logger)
}

func NewPaymentMethodRepository(db *postgres.DB, logger *logger.Logger) paymentmethod.Repository {
	return postgresRepo.NewPaymentMethodRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, cfg *config.Configuration, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger, cfg.Billing.InvoiceCounterName)
}
