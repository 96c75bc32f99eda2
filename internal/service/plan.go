package service

import (
	"context"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/plan"
)

// PlanService manages the plan catalog the billing engine reads from
type PlanService interface {
	CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*plan.Plan, error)
	GetPlan(ctx context.Context, id string) (*plan.Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]*plan.Plan, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) CreatePlan(ctx context.Context, req *dto.CreatePlanRequest) (*plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPlan()
	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created plan",
		"plan_id", p.ID,
		"name", p.Name,
		"price", p.Price.String(),
		"currency", p.Currency,
		"billing_cycle", p.BillingCycle,
	)
	return p, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	return s.PlanRepo.Get(ctx, id)
}

func (s *planService) ListPlans(ctx context.Context, activeOnly bool) ([]*plan.Plan, error) {
	return s.PlanRepo.List(ctx, activeOnly)
}
