package service

import (
	"testing"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PlanService
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPlanService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *PlanServiceSuite) TestCreatePlan() {
	ctx := s.GetContext()

	p, err := s.service.CreatePlan(ctx, &dto.CreatePlanRequest{
		Name:         "Starter",
		Price:        decimal.RequireFromString("9.99"),
		Currency:     "usd",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().NoError(err)
	s.Equal(types.CurrencyUSD, p.Currency)
	s.True(p.IsActive)

	got, err := s.service.GetPlan(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Name, got.Name)

	_, err = s.service.CreatePlan(ctx, &dto.CreatePlanRequest{
		Name:         "starter",
		Price:        decimal.NewFromInt(1),
		Currency:     "USD",
		BillingCycle: types.BillingCycleYearly,
	})
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PlanServiceSuite) TestCreatePlanValidation() {
	tests := []struct {
		name string
		req  *dto.CreatePlanRequest
	}{
		{
			name: "missing name",
			req:  &dto.CreatePlanRequest{Currency: "USD", BillingCycle: types.BillingCycleMonthly},
		},
		{
			name: "negative price",
			req: &dto.CreatePlanRequest{
				Name:         "Broken",
				Price:        decimal.NewFromInt(-1),
				Currency:     "USD",
				BillingCycle: types.BillingCycleMonthly,
			},
		},
		{
			name: "unknown cycle",
			req: &dto.CreatePlanRequest{
				Name:         "Weekly",
				Currency:     "USD",
				BillingCycle: types.BillingCycle("WEEKLY"),
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreatePlan(s.GetContext(), tt.req)
			s.Require().Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *PlanServiceSuite) TestListPlans() {
	ctx := s.GetContext()

	active, err := s.service.CreatePlan(ctx, &dto.CreatePlanRequest{
		Name: "Active", Price: decimal.NewFromInt(5), Currency: "USD", BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().NoError(err)

	retired, err := s.service.CreatePlan(ctx, &dto.CreatePlanRequest{
		Name: "Retired", Price: decimal.NewFromInt(5), Currency: "USD", BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().NoError(err)
	retired.IsActive = false
	s.Require().NoError(s.GetStores().PlanRepo.InMemoryStore.Update(ctx, retired.ID, retired))

	all, err := s.service.ListPlans(ctx, false)
	s.Require().NoError(err)
	s.Len(all, 2)

	onlyActive, err := s.service.ListPlans(ctx, true)
	s.Require().NoError(err)
	s.Require().Len(onlyActive, 1)
	s.Equal(active.ID, onlyActive[0].ID)
}
