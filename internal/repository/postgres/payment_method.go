package postgres

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/paymentmethod"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
)

const (
	paymentMethodColumns = `id, user_id, card_type, last4, expiry_date, is_default, created_at, updated_at`

	constraintPaymentMethodCard    = "uq_payment_methods_card"
	constraintPaymentMethodDefault = "uq_payment_methods_default"
)

type paymentMethodRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentMethodRepository(db *postgres.DB, logger *logger.Logger) paymentmethod.Repository {
	return &paymentMethodRepository{db: db, logger: logger}
}

// Create decides is_default in the same statement as the insert. Two
// concurrent first inserts for one user race on the partial default index
// and the loser is retried as a non default method. Each attempt runs in its
// own savepoint so a violation does not abort the caller's transaction.
func (r *paymentMethodRepository) Create(ctx context.Context, pm *paymentmethod.PaymentMethod) error {
	err := r.insert(ctx, pm, true)
	if err != nil && postgres.IsUniqueViolation(err, constraintPaymentMethodDefault) {
		r.logger.Debugw("default payment method taken concurrently, inserting as non default",
			"payment_method_id", pm.ID,
			"user_id", pm.UserID,
		)
		err = r.insert(ctx, pm, false)
	}

	if err != nil {
		if postgres.IsUniqueViolation(err, constraintPaymentMethodCard) {
			return ierr.WithError(err).
				WithHint("This card is already on file").
				WithReportableDetails(map[string]any{
					"card_type":   pm.CardType,
					"last4":       pm.Last4,
					"expiry_date": pm.ExpiryDate,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payment method").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *paymentMethodRepository) insert(ctx context.Context, pm *paymentmethod.PaymentMethod, defaultIfFirst bool) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO payment_methods (
				id, user_id, card_type, last4, expiry_date, is_default, created_at, updated_at
			)
			VALUES (
				$1, $2, $3, $4, $5,
				$6 AND NOT EXISTS (SELECT 1 FROM payment_methods WHERE user_id = $2 AND is_default),
				$7, $8
			)
			RETURNING is_default`

		var isDefault bool
		err := r.db.Querier(ctx).GetContext(ctx, &isDefault, query,
			pm.ID,
			pm.UserID,
			pm.CardType,
			pm.Last4,
			pm.ExpiryDate,
			defaultIfFirst,
			pm.CreatedAt,
			pm.UpdatedAt,
		)
		if err != nil {
			return err
		}
		pm.IsDefault = isDefault
		return nil
	})
}

func (r *paymentMethodRepository) Find(ctx context.Context, card paymentmethod.Card, userID string) (*paymentmethod.PaymentMethod, error) {
	card = card.Normalize()

	var pm paymentmethod.PaymentMethod
	err := r.db.Querier(ctx).GetContext(ctx, &pm, `
		SELECT `+paymentMethodColumns+`
		FROM payment_methods
		WHERE last4 = $1 AND expiry_date = $2 AND card_type = $3 AND user_id = $4`,
		card.Last4, card.ExpiryDate, card.CardType, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to find payment method").
			Mark(ierr.ErrDatabase)
	}
	return &pm, nil
}

func (r *paymentMethodRepository) Get(ctx context.Context, userID, id string) (*paymentmethod.PaymentMethod, error) {
	var pm paymentmethod.PaymentMethod
	err := r.db.Querier(ctx).GetContext(ctx, &pm, `
		SELECT `+paymentMethodColumns+`
		FROM payment_methods
		WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.WithError(err).
				WithHint("Payment method not found").
				WithReportableDetails(map[string]any{
					"payment_method_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment method").
			Mark(ierr.ErrDatabase)
	}
	return &pm, nil
}

func (r *paymentMethodRepository) GetDefault(ctx context.Context, userID string) (*paymentmethod.PaymentMethod, error) {
	var pm paymentmethod.PaymentMethod
	err := r.db.Querier(ctx).GetContext(ctx, &pm, `
		SELECT `+paymentMethodColumns+`
		FROM payment_methods
		WHERE user_id = $1 AND is_default`,
		userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get default payment method").
			Mark(ierr.ErrDatabase)
	}
	return &pm, nil
}

func (r *paymentMethodRepository) List(ctx context.Context, userID string) ([]*paymentmethod.PaymentMethod, error) {
	methods := make([]*paymentmethod.PaymentMethod, 0)
	err := r.db.Querier(ctx).SelectContext(ctx, &methods, `
		SELECT `+paymentMethodColumns+`
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payment methods").
			Mark(ierr.ErrDatabase)
	}
	return methods, nil
}

func (r *paymentMethodRepository) Update(ctx context.Context, userID, id string, card paymentmethod.Card) (bool, error) {
	card = card.Normalize()

	result, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE payment_methods
		SET card_type = $1, last4 = $2, expiry_date = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`,
		card.CardType, card.Last4, card.ExpiryDate, time.Now().UTC(), id, userID)
	if err != nil {
		if postgres.IsUniqueViolation(err, constraintPaymentMethodCard) {
			return false, ierr.WithError(err).
				WithHint("This card is already on file").
				Mark(ierr.ErrAlreadyExists)
		}
		return false, ierr.WithError(err).
			WithHint("Failed to update payment method").
			Mark(ierr.ErrDatabase)
	}
	return rowsAffected(result)
}

func (r *paymentMethodRepository) Remove(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.Querier(ctx).ExecContext(ctx,
		`DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return false, ierr.WithError(err).
				WithHint("Payment method is still referenced by a subscription or invoice").
				Mark(ierr.ErrInvalidOperation)
		}
		return false, ierr.WithError(err).
			WithHint("Failed to remove payment method").
			Mark(ierr.ErrDatabase)
	}
	return rowsAffected(result)
}
