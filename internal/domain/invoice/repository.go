package invoice

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	ListByUser(ctx context.Context, userID string) ([]*Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Invoice, error)

	// GetNextInvoiceNumber atomically increments the invoice counter and
	// returns the formatted number. Call it inside the transaction that
	// inserts the invoice so a rollback also releases the number.
	GetNextInvoiceNumber(ctx context.Context) (string, error)
}
