package testutil

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

var _ paymentmethod.Repository = (*InMemoryPaymentMethodStore)(nil)

// InMemoryPaymentMethodStore implements paymentmethod.Repository with the
// same unique card and single default rules as the SQL schema. Like the
// foreign keys from subscriptions and invoices, Remove refuses a method
// that inUse reports as referenced.
type InMemoryPaymentMethodStore struct {
	*InMemoryStore[*paymentmethod.PaymentMethod]
	inUse func(ctx context.Context, id string) bool
}

func NewInMemoryPaymentMethodStore() *InMemoryPaymentMethodStore {
	return &InMemoryPaymentMethodStore{
		InMemoryStore: NewInMemoryStore[*paymentmethod.PaymentMethod](),
	}
}

// SetInUseCheck installs the reference lookup used by Remove
func (s *InMemoryPaymentMethodStore) SetInUseCheck(inUse func(ctx context.Context, id string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inUse = inUse
}

func copyPaymentMethod(pm *paymentmethod.PaymentMethod) *paymentmethod.PaymentMethod {
	if pm == nil {
		return nil
	}
	c := *pm
	return &c
}

func (s *InMemoryPaymentMethodStore) Create(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasDefault := false
	for _, existing := range s.items {
		if existing.UserID != pm.UserID {
			continue
		}
		if existing.Matches(pm.Card()) {
			return ierr.NewError("payment method already exists").
				WithHint("This card is already on file").
				Mark(ierr.ErrAlreadyExists)
		}
		hasDefault = hasDefault || existing.IsDefault
	}

	pm.IsDefault = !hasDefault
	return s.create(ctx, pm.ID, copyPaymentMethod(pm))
}

func (s *InMemoryPaymentMethodStore) Find(ctx context.Context, card paymentmethod.Card, userID string) (*paymentmethod.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pm := range s.items {
		if pm.UserID == userID && pm.Matches(card) {
			return copyPaymentMethod(pm), nil
		}
	}
	return nil, nil
}

func (s *InMemoryPaymentMethodStore) Get(ctx context.Context, userID, id string) (*paymentmethod.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pm, ok := s.items[id]
	if !ok || pm.UserID != userID {
		return nil, ierr.NewError("payment method not found").
			WithHint("Payment method not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPaymentMethod(pm), nil
}

func (s *InMemoryPaymentMethodStore) GetDefault(ctx context.Context, userID string) (*paymentmethod.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pm := range s.items {
		if pm.UserID == userID && pm.IsDefault {
			return copyPaymentMethod(pm), nil
		}
	}
	return nil, nil
}

func (s *InMemoryPaymentMethodStore) List(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error) {
	methods, err := s.InMemoryStore.List(ctx, userID,
		func(_ context.Context, pm *paymentmethod.PaymentMethod, _ interface{}) bool {
			return pm.UserID == userID
		},
		func(i, j *paymentmethod.PaymentMethod) bool {
			return i.CreatedAt.Before(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		methods[i] = copyPaymentMethod(methods[i])
	}
	return methods, nil
}

func (s *InMemoryPaymentMethodStore) Update(ctx context.Context, userID, id string, card paymentmethod.Card) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pm, ok := s.items[id]
	if !ok || pm.UserID != userID {
		return false, nil
	}
	for otherID, other := range s.items {
		if otherID != id && other.UserID == userID && other.Matches(card) {
			return false, ierr.NewError("payment method already exists").
				WithHint("This card is already on file").
				Mark(ierr.ErrAlreadyExists)
		}
	}

	card = card.Normalize()
	updated := copyPaymentMethod(pm)
	updated.CardType = card.CardType
	updated.Last4 = card.Last4
	updated.ExpiryDate = card.ExpiryDate
	updated.UpdatedAt = time.Now().UTC()
	return true, s.update(ctx, id, updated)
}

func (s *InMemoryPaymentMethodStore) Remove(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pm, ok := s.items[id]
	if !ok || pm.UserID != userID {
		return false, nil
	}
	if s.inUse != nil && s.inUse(ctx, id) {
		return false, ierr.NewError("payment method is referenced").
			WithHint("Payment method is still referenced by a subscription or invoice").
			Mark(ierr.ErrInvalidOperation)
	}
	return true, s.delete(ctx, id)
}
