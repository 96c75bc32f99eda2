package cached

import (
	"context"
	"testing"

	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPlanRepo struct {
	plans map[string]*plan.Plan
	gets  int
}

func (r *countingPlanRepo) Create(_ context.Context, p *plan.Plan) error {
	r.plans[p.ID] = p
	return nil
}

func (r *countingPlanRepo) Get(_ context.Context, id string) (*plan.Plan, error) {
	r.gets++
	if p, ok := r.plans[id]; ok {
		return p, nil
	}
	return nil, ierr.NewError("plan not found").Mark(ierr.ErrNotFound)
}

func (r *countingPlanRepo) GetByName(_ context.Context, name string) (*plan.Plan, error) {
	r.gets++
	for _, p := range r.plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, ierr.NewError("plan not found").Mark(ierr.ErrNotFound)
}

func (r *countingPlanRepo) List(_ context.Context, _ bool) ([]*plan.Plan, error) {
	return nil, nil
}

func TestCachedPlanRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingPlanRepo{plans: map[string]*plan.Plan{}}
	repo := NewPlanRepository(inner, cache.NewInMemoryCache(config.GetDefaultConfig()), logger.NewNopLogger())

	p := plan.New("pro", "", decimal.NewFromInt(10), types.CurrencyUSD, types.BillingCycleMonthly)
	require.NoError(t, repo.Create(ctx, p))

	for i := 0; i < 3; i++ {
		got, err := repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	}
	assert.Equal(t, 1, inner.gets)

	_, err := repo.Get(ctx, "plan_missing")
	assert.True(t, ierr.IsNotFound(err))
	_, err = repo.Get(ctx, "plan_missing")
	assert.True(t, ierr.IsNotFound(err))
	assert.Equal(t, 3, inner.gets, "misses are not cached")
}
