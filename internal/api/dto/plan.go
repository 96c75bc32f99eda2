package dto

import (
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name         string             `json:"name" validate:"required,max=255"`
	Description  string             `json:"description"`
	Price        decimal.Decimal    `json:"price"`
	Currency     string             `json:"currency" validate:"required,len=3"`
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToPlan().Validate()
}

func (r *CreatePlanRequest) ToPlan() *plan.Plan {
	return plan.New(r.Name, r.Description, r.Price, types.NormalizeCurrency(r.Currency), r.BillingCycle)
}
