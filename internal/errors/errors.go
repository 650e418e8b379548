package errors

import (
	"github.com/cockroachdb/errors"
)

// Marker errors used to classify failures across the codebase.
// Callers attach exactly one mark via the builder's Mark method and
// branch on it with the Is* predicates below.
var (
	ErrValidation       = errors.New("validation_error")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyExists    = errors.New("already_exists")
	ErrDatabase         = errors.New("database_error")
	ErrGateway          = errors.New("gateway_error")
	ErrHTTPClient       = errors.New("http_client_error")
	ErrPermissionDenied = errors.New("permission_denied")
	ErrInternal         = errors.New("internal_error")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsGateway(err error) bool {
	return errors.Is(err, ErrGateway)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// Hint returns the first hint attached to the error chain, if any.
func Hint(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

// Is and As re-export the underlying predicates so callers do not need to
// import both this package and the stdlib errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
