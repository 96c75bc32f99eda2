package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/subscription"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const (
	subscriptionColumns = `id, user_id, plan_id, payment_method_id, status, next_billing_date, cancellation_requested, created_at, updated_at`

	constraintActiveSubscription = "uq_subscriptions_active_user"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id,
			user_id,
			plan_id,
			payment_method_id,
			status,
			next_billing_date,
			cancellation_requested,
			created_at,
			updated_at
		)
		VALUES (
			:id,
			:user_id,
			:plan_id,
			:payment_method_id,
			:status,
			:next_billing_date,
			:cancellation_requested,
			:created_at,
			:updated_at
		)`

	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"plan_id", sub.PlanID,
	)

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, sub); err != nil {
		if postgres.IsUniqueViolation(err, constraintActiveSubscription) {
			return ierr.WithError(err).
				WithHint("User already has an active subscription").
				WithReportableDetails(map[string]any{
					"user_id": sub.UserID,
				}).
				Mark(ierr.ErrConflict)
		}
		if postgres.IsForeignKeyViolation(err) {
			return ierr.WithError(err).
				WithHint("Plan or payment method does not exist").
				Mark(ierr.ErrValidation)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return nil, r.notFoundOrDatabase(err, id)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, r.notFoundOrDatabase(err, id)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetActiveForUser(ctx context.Context, userID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND status = $2`,
		userID, types.SubscriptionStatusActive)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get active subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildSubscriptionListQuery(filter)

	subs := make([]*subscription.Subscription, 0)
	if err := r.db.Querier(ctx).SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func buildSubscriptionListQuery(filter *types.SubscriptionFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = "+arg(filter.UserID))
	}
	if filter.PlanID != "" {
		conditions = append(conditions, "plan_id = "+arg(filter.PlanID))
	}
	if len(filter.SubscriptionStatus) > 0 {
		statuses := lo.Map(filter.SubscriptionStatus, func(s types.SubscriptionStatus, _ int) string {
			return string(s)
		})
		conditions = append(conditions, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if filter.NextBillingDateFrom != nil {
		conditions = append(conditions, "next_billing_date >= "+arg(*filter.NextBillingDateFrom))
	}
	if filter.NextBillingDateBefore != nil {
		conditions = append(conditions, "next_billing_date < "+arg(*filter.NextBillingDateBefore))
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	return query, args
}

func (r *subscriptionRepository) Cancel(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1,
			next_billing_date = NULL,
			cancellation_requested = TRUE,
			updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5`,
		types.SubscriptionStatusCancelled,
		time.Now().UTC(),
		id,
		userID,
		types.SubscriptionStatusActive,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to cancel subscription").
			Mark(ierr.ErrDatabase)
	}
	return rowsAffected(result)
}

func (r *subscriptionRepository) MarkExpired(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	expired := make([]*subscription.Subscription, 0)
	err := r.db.Querier(ctx).SelectContext(ctx, &expired, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND next_billing_date < $4
		RETURNING `+subscriptionColumns,
		types.SubscriptionStatusInactive,
		time.Now().UTC(),
		types.SubscriptionStatusActive,
		cutoff,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to mark expired subscriptions").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("marked expired subscriptions inactive",
		"cutoff", cutoff,
		"count", len(expired),
	)
	return expired, nil
}

func (r *subscriptionRepository) AdvanceBillingDate(ctx context.Context, id string, observed, next time.Time) (bool, error) {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE subscriptions
		SET next_billing_date = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND next_billing_date = $5`,
		next,
		time.Now().UTC(),
		id,
		types.SubscriptionStatusActive,
		observed,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to advance billing date").
			Mark(ierr.ErrDatabase)
	}
	return rowsAffected(result)
}

func (r *subscriptionRepository) notFoundOrDatabase(err error, id string) error {
	if postgres.IsNoRows(err) {
		return ierr.WithError(err).
			WithHintf("Subscription %s not found", id).
			WithReportableDetails(map[string]any{
				"subscription_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHint("Failed to get subscription").
		Mark(ierr.ErrDatabase)
}
