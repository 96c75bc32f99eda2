package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// postgres error codes the repositories react to
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// AsPQError unwraps err into a *pq.Error
func AsPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique violation on the named
// constraint or index. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	pqErr, ok := AsPQError(err)
	if !ok || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func IsForeignKeyViolation(err error) bool {
	pqErr, ok := AsPQError(err)
	return ok && pqErr.Code == codeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	pqErr, ok := AsPQError(err)
	return ok && pqErr.Code == codeCheckViolation
}

// IsRetryable reports whether the statement failed for a transient reason
// and the whole transaction may be retried
func IsRetryable(err error) bool {
	pqErr, ok := AsPQError(err)
	if !ok {
		return false
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// IsNoRows reports whether err is sql.ErrNoRows
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
