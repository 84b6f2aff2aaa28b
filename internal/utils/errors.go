package utils

import "errors"

// Common application errors used across services. Services wrap them with
// fmt.Errorf("%w: ...") and handlers map them to HTTP codes via errors.Is.
var (
	ErrValidation          = errors.New("VALIDATION_ERROR")
	ErrNotFound            = errors.New("NOT_FOUND")
	ErrInvalidTransition   = errors.New("INVALID_TRANSITION")
	ErrInvalidAgent        = errors.New("INVALID_AGENT")
	ErrMissingTarget       = errors.New("MISSING_TARGET")
	ErrReferentialConflict = errors.New("REFERENTIAL_CONFLICT")
	ErrStoreUnavailable    = errors.New("STORE_UNAVAILABLE")
	ErrDuplicateStock      = errors.New("DUPLICATE_STOCK")
	ErrPeriodClosed        = errors.New("PERIOD_CLOSED")
)

// errorCodes lists the sentinels in the order they are checked when
// resolving an error code. Wrapped errors may carry more than one sentinel;
// the first match wins.
var errorCodes = []error{
	ErrMissingTarget,
	ErrValidation,
	ErrNotFound,
	ErrInvalidTransition,
	ErrInvalidAgent,
	ErrDuplicateStock,
	ErrPeriodClosed,
	ErrReferentialConflict,
	ErrStoreUnavailable,
}

// ErrorCode returns the API error code for err, or INTERNAL_ERROR when err
// does not wrap a known sentinel.
func ErrorCode(err error) string {
	for _, sentinel := range errorCodes {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus maps an application error to the HTTP status code returned to
// the caller.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingTarget), errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidAgent),
		errors.Is(err, ErrDuplicateStock),
		errors.Is(err, ErrPeriodClosed),
		errors.Is(err, ErrReferentialConflict):
		return 409
	case errors.Is(err, ErrStoreUnavailable):
		return 503
	default:
		return 500
	}
}
