package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder assembles an error with an optional hint and reportable
// details before marking it with one of the classification errors.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]interface{}
}

// NewError starts a builder from a fresh error message. The message is what
// callers see from Error(), so gateway failure reasons passed here are
// persisted verbatim downstream.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a builder from a formatted error message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage starts a builder wrapping err with a prefixed message.
func WithMessage(err error, msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.WithMessage(err, msg)}
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to surface
// in logs and API error payloads.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalizes the builder, attaching the classification marker so the
// Is* predicates match anywhere up the call stack.
func (b *ErrorBuilder) Mark(mark error) error {
	err := b.err
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	for k, v := range b.details {
		err = errors.WithDetailf(err, "%s=%v", k, v)
	}
	return errors.Mark(err, mark)
}
