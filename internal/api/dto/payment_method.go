package dto

import (
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	"github.com/flexprice/subscriptions/internal/validator"
)

type CreatePaymentMethodRequest struct {
	Card paymentmethod.Card `json:"card" validate:"required"`
}

func (r *CreatePaymentMethodRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return ValidateCardExpiry(r.Card)
}

type UpdatePaymentMethodRequest struct {
	Card paymentmethod.Card `json:"card" validate:"required"`
}

func (r *UpdatePaymentMethodRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return ValidateCardExpiry(r.Card)
}
