package cached

import (
	"context"

	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/logger"
)

// planRepository serves plan reads from a process local cache. Plans are
// read for every subscription in a billing sweep and change rarely.
type planRepository struct {
	plan.Repository
	cache  cache.Cache
	logger *logger.Logger
}

// NewPlanRepository wraps repo with a read through cache
func NewPlanRepository(repo plan.Repository, c cache.Cache, logger *logger.Logger) plan.Repository {
	return &planRepository{Repository: repo, cache: c, logger: logger}
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	key := cache.PlanKey(id)
	if p, ok := r.cached(ctx, key); ok {
		return p, nil
	}

	p, err := r.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, key, copyPlan(p), 0)
	return p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	key := cache.PlanNameKey(name)
	if p, ok := r.cached(ctx, key); ok {
		return p, nil
	}

	p, err := r.Repository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, key, copyPlan(p), 0)
	r.cache.Set(ctx, cache.PlanKey(p.ID), copyPlan(p), 0)
	return p, nil
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	if err := r.Repository.Create(ctx, p); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.PlanNameKey(p.Name))
	r.logger.Debugw("created plan, name cache entry invalidated", "plan_id", p.ID)
	return nil
}

// cached returns a copy so callers cannot modify the shared entry
func (r *planRepository) cached(ctx context.Context, key string) (*plan.Plan, bool) {
	v, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	p, ok := v.(*plan.Plan)
	if !ok {
		return nil, false
	}
	return copyPlan(p), true
}

func copyPlan(p *plan.Plan) *plan.Plan {
	c := *p
	return &c
}
