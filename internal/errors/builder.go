package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// SafeDetailsPrefix marks a safe detail that holds JSON reportable details
const SafeDetailsPrefix = "__json__:"

// ErrorBuilder accumulates hints and details on an error. It is not an
// error itself, so every chain ends with Mark.
//
//	return ierr.NewError("plan not found").
//		WithHintf("Plan %s not found", id).
//		Mark(ierr.ErrNotFound)
type ErrorBuilder struct {
	err error
}

func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a chain from an existing error, e.g. a driver error
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) apply(wrap func(error) error) *ErrorBuilder {
	b.err = wrap(b.err)
	return b
}

// WithHint sets the message rendered to API callers
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	return b.apply(func(err error) error { return errors.WithHint(err, hint) })
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	return b.apply(func(err error) error { return errors.WithHintf(err, format, args...) })
}

// WithReportableDetails attaches details the error handler may echo back.
// Details that cannot be encoded are dropped.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	encoded, err := json.Marshal(details)
	if err != nil {
		return b
	}
	return b.apply(func(err error) error {
		return errors.WithSafeDetails(err, SafeDetailsPrefix+"%s", errors.Safe(string(encoded)))
	})
}

// Mark tags the error with one of the sentinels in errors.go and returns it
func (b *ErrorBuilder) Mark(sentinel error) error {
	return errors.Mark(b.err, sentinel)
}
