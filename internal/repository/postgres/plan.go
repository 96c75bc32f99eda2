package postgres

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
)

const planColumns = `id, name, description, price, currency, billing_cycle, is_active, created_at, updated_at`

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id,
			name,
			description,
			price,
			currency,
			billing_cycle,
			is_active,
			created_at,
			updated_at
		)
		VALUES (
			:id,
			:name,
			:description,
			:price,
			:currency,
			:billing_cycle,
			:is_active,
			:created_at,
			:updated_at
		)`

	r.logger.Debugw("creating plan", "plan_id", p.ID, "name", p.Name)

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, p); err != nil {
		if postgres.IsUniqueViolation(err, "uq_plans_name") {
			return ierr.WithError(err).
				WithHintf("A plan named %s already exists", p.Name).
				WithReportableDetails(map[string]any{
					"name": p.Name,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		if postgres.IsCheckViolation(err) {
			return ierr.WithError(err).
				WithHint("Plan price must not be negative and billing cycle must be MONTHLY or YEARLY").
				Mark(ierr.ErrValidation)
		}
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.Querier(ctx).GetContext(ctx, &p,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Plan %s not found", id).
				WithReportableDetails(map[string]any{
					"plan_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.Querier(ctx).GetContext(ctx, &p,
		`SELECT `+planColumns+` FROM plans WHERE name = $1`, name)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Plan %s not found", name).
				WithReportableDetails(map[string]any{
					"name": name,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]*plan.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	plans := make([]*plan.Plan, 0)
	if err := r.db.Querier(ctx).SelectContext(ctx, &plans, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}
