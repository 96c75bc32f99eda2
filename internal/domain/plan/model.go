package plan

import (
	"strings"
	"time"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable offering. The billing engine only reads plans,
// the catalog operations exist for seeding and administration.
type Plan struct {
	ID           string             `db:"id" json:"id"`
	Name         string             `db:"name" json:"name"`
	Description  string             `db:"description" json:"description"`
	Price        decimal.Decimal    `db:"price" json:"price"`
	Currency     types.Currency     `db:"currency" json:"currency"`
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	IsActive     bool               `db:"is_active" json:"is_active"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// New builds an active plan with a fresh id
func New(name, description string, price decimal.Decimal, currency types.Currency, cycle types.BillingCycle) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:           types.NewID(types.IDPrefixPlan),
		Name:         strings.TrimSpace(name),
		Description:  description,
		Price:        price,
		Currency:     currency,
		BillingCycle: cycle,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}

	if p.Price.IsNegative() {
		return ierr.NewError("plan price must not be negative").
			WithHint("Plan price must be zero or greater").
			WithReportableDetails(map[string]any{
				"price": p.Price.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if err := p.Currency.Validate(); err != nil {
		return err
	}

	return p.BillingCycle.Validate()
}
