package testutil

import (
	"context"
	"strings"

	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

var _ plan.Repository = (*InMemoryPlanStore)(nil)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func copyPlan(p *plan.Plan) *plan.Plan {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if strings.EqualFold(existing.Name, p.Name) {
			return ierr.NewError("plan name already exists").
				WithHintf("A plan named %s already exists", p.Name).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.create(ctx, p.ID, copyPlan(p))
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Plan %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.items {
		if strings.EqualFold(p.Name, name) {
			return copyPlan(p), nil
		}
	}
	return nil, ierr.NewError("plan not found").
		WithHintf("Plan %s not found", name).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPlanStore) List(ctx context.Context, activeOnly bool) ([]*plan.Plan, error) {
	plans, err := s.InMemoryStore.List(ctx, activeOnly,
		func(_ context.Context, p *plan.Plan, _ interface{}) bool {
			return !activeOnly || p.IsActive
		},
		func(i, j *plan.Plan) bool {
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i] = copyPlan(plans[i])
	}
	return plans, nil
}
