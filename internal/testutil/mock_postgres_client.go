package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type txKey struct{}

// mockTx collects undo steps for the writes made inside one transaction
type mockTx struct {
	mu   sync.Mutex
	undo []func()
}

func txFromContext(ctx context.Context) *mockTx {
	tx, _ := ctx.Value(txKey{}).(*mockTx)
	return tx
}

func (tx *mockTx) record(undo func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.undo = append(tx.undo, undo)
}

func (tx *mockTx) mark() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.undo)
}

// rollbackTo undoes every write recorded after mark, newest first
func (tx *mockTx) rollbackTo(mark int) {
	tx.mu.Lock()
	steps := tx.undo[mark:]
	tx.undo = tx.undo[:mark]
	tx.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// MockPostgresClient gives the in-memory stores transaction semantics.
// Top level transactions run one at a time and nested calls behave like
// savepoints. A failed or panicking transaction undoes its writes.
type MockPostgresClient struct {
	mu     sync.Mutex
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return c.run(ctx, tx, tx.mark(), fn)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &mockTx{}
	return c.run(context.WithValue(ctx, txKey{}, tx), tx, 0, fn)
}

func (c *MockPostgresClient) run(ctx context.Context, tx *mockTx, mark int, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tx.rollbackTo(mark)
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		c.logger.Debugw("rolling back mock transaction", "error", err)
		tx.rollbackTo(mark)
	}
	return err
}

// Querier is not backed by a database, the in-memory stores never call it
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}
