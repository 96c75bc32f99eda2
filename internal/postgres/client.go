package postgres

import (
	"context"

	"go.uber.org/fx"
)

// IClient is what services depend on: a transaction boundary plus a
// querier that joins the transaction carried by ctx, if any
type IClient interface {
	// WithTx wraps the given function in a transaction. Nested calls
	// become savepoints of the outer transaction.
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// Querier returns the current transaction if in one, or the pool
	Querier(ctx context.Context) Querier
}

var _ IClient = (*DB)(nil)

// Module provides the connection pool and exposes it as an IClient
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			func(db *DB) IClient { return db },
		),
		fx.Invoke(func(lc fx.Lifecycle, db *DB) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					db.Close()
					return nil
				},
			})
		}),
	)
}
