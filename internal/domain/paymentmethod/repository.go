package paymentmethod

import (
	"context"
)

// Repository is the payment method store. Every operation is scoped to a user.
type Repository interface {
	// Create inserts pm and sets pm.IsDefault when the user had no default yet.
	// An identical card for the same user fails with ierr.ErrAlreadyExists.
	Create(ctx context.Context, pm *PaymentMethod) error

	// Find returns the exact card match for the user, or nil, nil when absent
	Find(ctx context.Context, card Card, userID string) (*PaymentMethod, error)

	// Get returns ierr.ErrNotFound unless id belongs to userID
	Get(ctx context.Context, userID, id string) (*PaymentMethod, error)

	// GetDefault returns the user's default method, or nil, nil when there is none
	GetDefault(ctx context.Context, userID string) (*PaymentMethod, error)

	List(ctx context.Context, userID string) ([]*PaymentMethod, error)

	// Update replaces the card details and reports whether a row changed
	Update(ctx context.Context, userID, id string, card Card) (bool, error)

	// Remove deletes the method and reports whether a row was removed
	Remove(ctx context.Context, userID, id string) (bool, error)
}
