package service

import (
	"context"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// PaymentMethodService manages the cards a user keeps on file
type PaymentMethodService interface {
	CreatePaymentMethod(ctx context.Context, userID string, req *dto.CreatePaymentMethodRequest) (*paymentmethod.PaymentMethod, error)
	FindPaymentMethod(ctx context.Context, userID string, card paymentmethod.Card) (*paymentmethod.PaymentMethod, error)
	ResolvePaymentMethod(ctx context.Context, userID string, card paymentmethod.Card) (*paymentmethod.PaymentMethod, error)
	GetDefaultPaymentMethod(ctx context.Context, userID string) (*paymentmethod.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, userID, id string, req *dto.UpdatePaymentMethodRequest) (bool, error)
	RemovePaymentMethod(ctx context.Context, userID, id string) (bool, error)
}

type paymentMethodService struct {
	ServiceParams
}

func NewPaymentMethodService(params ServiceParams) PaymentMethodService {
	return &paymentMethodService{ServiceParams: params}
}

func (s *paymentMethodService) CreatePaymentMethod(ctx context.Context, userID string, req *dto.CreatePaymentMethodRequest) (*paymentmethod.PaymentMethod, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pm := paymentmethod.New(userID, req.Card)
	if err := s.PaymentMethodRepo.Create(ctx, pm); err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment method",
		"payment_method_id", pm.ID,
		"user_id", userID,
		"is_default", pm.IsDefault,
	)
	return pm, nil
}

// FindPaymentMethod returns nil without error when the card is not on file
func (s *paymentMethodService) FindPaymentMethod(ctx context.Context, userID string, card paymentmethod.Card) (*paymentmethod.PaymentMethod, error) {
	return s.PaymentMethodRepo.Find(ctx, card, userID)
}

// ResolvePaymentMethod reuses the matching card on file or stores a new one.
// A concurrent insert of the same card is resolved by reading the winner.
func (s *paymentMethodService) ResolvePaymentMethod(ctx context.Context, userID string, card paymentmethod.Card) (*paymentmethod.PaymentMethod, error) {
	pm, err := s.PaymentMethodRepo.Find(ctx, card, userID)
	if err != nil {
		return nil, err
	}
	if pm != nil {
		return pm, nil
	}

	pm = paymentmethod.New(userID, card)
	err = s.PaymentMethodRepo.Create(ctx, pm)
	if err == nil {
		s.Logger.Infow("stored new payment method",
			"payment_method_id", pm.ID,
			"user_id", userID,
			"is_default", pm.IsDefault,
		)
		return pm, nil
	}
	if !ierr.IsAlreadyExists(err) {
		return nil, err
	}

	existing, findErr := s.PaymentMethodRepo.Find(ctx, card, userID)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

func (s *paymentMethodService) GetDefaultPaymentMethod(ctx context.Context, userID string) (*paymentmethod.PaymentMethod, error) {
	return s.PaymentMethodRepo.GetDefault(ctx, userID)
}

func (s *paymentMethodService) ListPaymentMethods(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error) {
	return s.PaymentMethodRepo.List(ctx, userID)
}

func (s *paymentMethodService) UpdatePaymentMethod(ctx context.Context, userID, id string, req *dto.UpdatePaymentMethodRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	return s.PaymentMethodRepo.Update(ctx, userID, id, req.Card)
}

func (s *paymentMethodService) RemovePaymentMethod(ctx context.Context, userID, id string) (bool, error) {
	return s.PaymentMethodRepo.Remove(ctx, userID, id)
}

func validateUserID(userID string) error {
	if userID == "" {
		return ierr.NewError("user id is required").
			WithHint("User id is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
