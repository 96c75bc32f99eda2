package httpclient

import (
	"fmt"

	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// Error is returned by Send for a response with status 400 or above.
// It matches ierr.ErrHTTPClient.
type Error struct {
	cause      *ierr.InternalError
	StatusCode int
	Response   []byte
}

func NewError(statusCode int, response []byte) *Error {
	return &Error{
		cause:      ierr.ErrHTTPClient,
		StatusCode: statusCode,
		Response:   response,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.cause.Code, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the endpoint may accept the same request later
func (e *Error) Retryable() bool {
	return shouldRetryStatus(e.StatusCode)
}

// IsHTTPError unwraps err into an *Error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
