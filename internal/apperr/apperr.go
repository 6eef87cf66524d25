// Package apperr defines the error taxonomy shared by the HTTP services.
// Every failure in a request path wraps one of these sentinels so the
// boundary can map it to a status code without string matching.
package apperr

import (
	"errors"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound covers missing classifications, companies absent from a
	// cohort, targets with no usable value, and empty filtered result sets.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers unrecognized metric or category keys and
	// malformed request parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated covers bad credentials and missing, expired, or
	// malformed bearer tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUpstream covers record-store and LLM call failures. Never retried
	// by this layer.
	ErrUpstream = errors.New("upstream failure")
)

// NotFound wraps ErrNotFound with a message.
func NotFound(msg string) error {
	return eris.Wrap(ErrNotFound, msg)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return eris.Wrapf(ErrNotFound, format, args...)
}

// InvalidArgument wraps ErrInvalidArgument with a message.
func InvalidArgument(msg string) error {
	return eris.Wrap(ErrInvalidArgument, msg)
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidArgument, format, args...)
}

// Unauthenticated wraps ErrUnauthenticated with a message.
func Unauthenticated(msg string) error {
	return eris.Wrap(ErrUnauthenticated, msg)
}

// Upstream marks err as an upstream failure, keeping its message chain.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(errors.Join(ErrUpstream, err), msg)
}
