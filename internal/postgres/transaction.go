package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/jmoiron/sqlx"
)

// Tx is the transaction carried in a context. Nested WithTx calls on the
// same context open savepoints instead of new transactions.
type Tx struct {
	*sqlx.Tx
	ID    string
	depth int
}

func (tx *Tx) savepoint() string {
	return fmt.Sprintf("sp_%d", tx.depth)
}

// GetTx returns the transaction bound to ctx, if any
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(types.CtxDBTransaction).(*Tx)
	return tx, ok
}

// begin opens a READ COMMITTED transaction, or a savepoint inside the one
// already bound to ctx
func (db *DB) begin(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.depth++
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+tx.savepoint()); err != nil {
			tx.depth--
			return ctx, nil, fmt.Errorf("savepoint: %w", err)
		}
		db.logger.Debugw("savepoint opened", "tx_id", tx.ID, "depth", tx.depth)
		return ctx, tx, nil
	}

	raw, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ctx, nil, fmt.Errorf("begin: %w", err)
	}
	tx := &Tx{Tx: raw, ID: types.GenerateUUID()}
	db.logger.Debugw("transaction opened", "tx_id", tx.ID)
	return context.WithValue(ctx, types.CtxDBTransaction, tx), tx, nil
}

// end commits or rolls back the innermost level of tx
func (db *DB) end(ctx context.Context, tx *Tx, commit bool) error {
	if tx.depth > 0 {
		stmt := "RELEASE SAVEPOINT "
		if !commit {
			stmt = "ROLLBACK TO SAVEPOINT "
		}
		sp := tx.savepoint()
		tx.depth--
		if _, err := tx.ExecContext(ctx, stmt+sp); err != nil {
			return fmt.Errorf("%s%s: %w", stmt, sp, err)
		}
		return nil
	}

	if commit {
		db.logger.Debugw("transaction committed", "tx_id", tx.ID)
		return tx.Commit()
	}
	db.logger.Debugw("transaction rolled back", "tx_id", tx.ID)
	return tx.Rollback()
}

// WithTx runs fn in a transaction bound to the context passed to fn. An
// error or panic from fn undoes every write made through that context.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := db.begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = db.end(ctx, tx, false)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := db.end(ctx, tx, false); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := db.end(ctx, tx, true); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
