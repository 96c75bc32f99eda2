package postgres

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/invoice"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/types"
)

const invoiceColumns = `id, invoice_number, user_id, subscription_id, payment_method_id, amount, currency, status, billing_reason, created_at`

type invoiceRepository struct {
	db          *postgres.DB
	logger      *logger.Logger
	counterName string
}

// NewInvoiceRepository returns an invoice store drawing numbers from the
// invoice_counters row named counterName
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger, counterName string) invoice.Repository {
	if counterName == "" {
		counterName = types.DefaultInvoiceCounterName
	}
	return &invoiceRepository{db: db, logger: logger, counterName: counterName}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id,
			invoice_number,
			user_id,
			subscription_id,
			payment_method_id,
			amount,
			currency,
			status,
			billing_reason,
			created_at
		)
		VALUES (
			:id,
			:invoice_number,
			:user_id,
			:subscription_id,
			:payment_method_id,
			:amount,
			:currency,
			:status,
			:billing_reason,
			:created_at
		)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, inv); err != nil {
		if postgres.IsUniqueViolation(err, "uq_invoices_invoice_number") {
			return ierr.WithError(err).
				WithHint("Invoice number already issued").
				WithReportableDetails(map[string]any{
					"invoice_number": inv.InvoiceNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"subscription_id", inv.SubscriptionID,
	)
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Querier(ctx).GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s not found", id).
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) ListByUser(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	invoices := make([]*invoice.Invoice, 0)
	err := r.db.Querier(ctx).SelectContext(ctx, &invoices,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 ORDER BY created_at, invoice_number`, userID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	invoices := make([]*invoice.Invoice, 0)
	err := r.db.Querier(ctx).SelectContext(ctx, &invoices,
		`SELECT `+invoiceColumns+` FROM invoices WHERE subscription_id = $1 ORDER BY created_at, invoice_number`, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

// GetNextInvoiceNumber relies on the row lock taken by the upsert, so any
// number of concurrent callers each read a distinct value. The lock is held
// until the caller's transaction ends, which serializes concurrent charges at
// this statement: raising Billing.SweepConcurrency does not add throughput.
func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context) (string, error) {
	query := `
		INSERT INTO invoice_counters (name, value, updated_at)
		VALUES ($1, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE
		SET value = invoice_counters.value + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING value`

	var value int64
	if err := r.db.Querier(ctx).GetContext(ctx, &value, query, r.counterName); err != nil {
		return "", ierr.WithError(err).
			WithHint("Invoice number generation failed").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("generated invoice number",
		"counter", r.counterName,
		"sequence", value,
	)

	return types.FormatInvoiceNumber(value), nil
}
