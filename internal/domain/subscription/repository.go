package subscription

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

type Repository interface {
	// Create fails with ierr.ErrConflict when the user already has an ACTIVE subscription
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetForUser returns ierr.ErrNotFound unless id belongs to userID
	GetForUser(ctx context.Context, id, userID string) (*Subscription, error)
	// GetActiveForUser returns nil, nil when the user has no ACTIVE subscription
	GetActiveForUser(ctx context.Context, userID string) (*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)

	// Cancel moves an ACTIVE subscription owned by userID to CANCELLED and
	// reports whether a row changed
	Cancel(ctx context.Context, id, userID string) (bool, error)

	// MarkExpired moves every ACTIVE subscription whose next billing date is
	// strictly before cutoff to INACTIVE and returns the affected rows
	MarkExpired(ctx context.Context, cutoff time.Time) ([]*Subscription, error)

	// AdvanceBillingDate moves next_billing_date from observed to next only if
	// the row is still ACTIVE with the observed date, and reports whether it did
	AdvanceBillingDate(ctx context.Context, id string, observed, next time.Time) (bool, error)
}
