package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily billing sweep: expire overdue subscriptions,
// then charge the ones due today. Cron evaluates the schedule in UTC.
type Scheduler struct {
	cron          *cron.Cron
	subscriptions service.SubscriptionService
	config        *config.Configuration
	logger        *logger.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

func NewScheduler(
	cfg *config.Configuration,
	subscriptions service.SubscriptionService,
	logger *logger.Logger,
) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger.GetCronLogger()),
		cron.WithChain(
			cron.Recover(logger.GetCronLogger()),
			cron.SkipIfStillRunning(logger.GetCronLogger()),
		),
	)

	return &Scheduler{
		cron:          c,
		subscriptions: subscriptions,
		config:        cfg,
		logger:        logger,
	}
}

// Start registers the sweep under the configured schedule and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	schedule := s.config.Billing.SweepSchedule
	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid billing sweep schedule %q", schedule).
			WithReportableDetails(map[string]any{
				"schedule": schedule,
			}).
			Mark(ierr.ErrValidation)
	}

	s.entryID = id
	s.started = true
	s.cron.Start()

	s.logger.Infow("billing scheduler started",
		"schedule", schedule,
		"next_run", s.cron.Entry(id).Next,
	)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("billing scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun returns the next scheduled sweep, zero when not started
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// run is the cron job. A failed sweep is logged and retried at the next tick.
func (s *Scheduler) run() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.Errorw("billing sweep failed", "error", err)
	}
}

// RunOnce expires overdue subscriptions and then charges those due today.
// The charge step runs even when expiry fails, the first error is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (*dto.SweepResponse, error) {
	start := time.Now().UTC()
	s.logger.Infow("starting billing sweep", "start_at", start)

	resp := &dto.SweepResponse{}

	expired, expireErr := s.subscriptions.MarkExpiredSubscriptionsAsInactive(ctx)
	if expireErr != nil {
		s.logger.Errorw("failed to expire subscriptions", "error", expireErr)
	}
	resp.Expired = expired

	charge, chargeErr := s.subscriptions.ChargeActiveSubscriptions(ctx)
	if chargeErr != nil {
		s.logger.Errorw("failed to charge subscriptions", "error", chargeErr)
	}
	resp.Charge = charge

	s.logger.Infow("completed billing sweep",
		"expired", resp.Expired,
		"duration", time.Since(start),
	)

	if expireErr != nil {
		return resp, expireErr
	}
	return resp, chargeErr
}
