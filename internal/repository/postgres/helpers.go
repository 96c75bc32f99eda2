package postgres

import (
	"database/sql"

	ierr "github.com/flexprice/subscriptions/internal/errors"
)

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}
	return n > 0, nil
}
