package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/jmoiron/sqlx"
)

// TracedQuerier logs every statement with its duration. A statement that
// fails with anything but sql.ErrNoRows is logged at warn level.
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{Querier: q, logger: logger, txID: txID}
}

func (tq *TracedQuerier) trace(query string, args any, start time.Time, err error) {
	fields := []any{
		"query", query,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if tq.txID != "" {
		fields = append(fields, "tx_id", tq.txID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		tq.logger.Warnw("query failed", append(fields, "error", err)...)
		return
	}
	tq.logger.Debugw("query done", fields...)
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	defer func(start time.Time) { tq.trace(query, args, start, err) }(time.Now())
	return tq.Querier.ExecContext(ctx, query, args...)
}

func (tq *TracedQuerier) QueryxContext(ctx context.Context, query string, args ...any) (rows *sqlx.Rows, err error) {
	defer func(start time.Time) { tq.trace(query, args, start, err) }(time.Now())
	return tq.Querier.QueryxContext(ctx, query, args...)
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest any, query string, args ...any) (err error) {
	defer func(start time.Time) { tq.trace(query, args, start, err) }(time.Now())
	return tq.Querier.GetContext(ctx, dest, query, args...)
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest any, query string, args ...any) (err error) {
	defer func(start time.Time) { tq.trace(query, args, start, err) }(time.Now())
	return tq.Querier.SelectContext(ctx, dest, query, args...)
}

func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg any) (res sql.Result, err error) {
	defer func(start time.Time) { tq.trace(query, arg, start, err) }(time.Now())
	return tq.Querier.NamedExecContext(ctx, query, arg)
}
