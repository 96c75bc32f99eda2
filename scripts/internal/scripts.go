package internal

import (
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/repository"
	"github.com/flexprice/subscriptions/internal/service"
)

// scriptEnv is the dependency graph cmd/server builds with fx, assembled by hand
type scriptEnv struct {
	cfg    *config.Configuration
	log    *logger.Logger
	db     *postgres.DB
	params service.ServiceParams
}

func newScriptEnv() (*scriptEnv, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}

	// scripts never deliver webhooks, the publisher is left nil
	params := service.NewServiceParams(
		log,
		cfg,
		db,
		repository.NewPlanRepository(db, cache.NewInMemoryCache(cfg), log),
		repository.NewPaymentMethodRepository(db, log),
		repository.NewSubscriptionRepository(db, log),
		repository.NewInvoiceRepository(db, cfg, log),
		nil,
	)

	return &scriptEnv{cfg: cfg, log: log, db: db, params: params}, nil
}

func (e *scriptEnv) close() {
	e.db.Close()
	e.log.Sync()
}
