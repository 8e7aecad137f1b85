package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure into the caller-facing taxonomy.
type Kind string

const (
	KindValidation                 Kind = "VALIDATION_ERROR"
	KindUnauthenticated            Kind = "UNAUTHENTICATED"
	KindUnauthorized               Kind = "UNAUTHORIZED"
	KindNotFoundOrNotPending       Kind = "NOT_FOUND_OR_NOT_PENDING"
	KindNotFoundOrAlreadyProcessed Kind = "NOT_FOUND_OR_ALREADY_PROCESSED"
	KindNotFound                   Kind = "NOT_FOUND"
	KindListingAlreadyOccupied     Kind = "LISTING_ALREADY_OCCUPIED"
	KindInternal                   Kind = "INTERNAL_ERROR"
)

// Error is the single error type returned by workflow entry points.
// "Not found" and "no longer in the required state" share a kind on purpose.
type Error struct {
	Kind    Kind
	Field   string // set for KindValidation
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperror.ErrUnauthorized) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated            = &Error{Kind: KindUnauthenticated}
	ErrUnauthorized               = &Error{Kind: KindUnauthorized}
	ErrValidation                 = &Error{Kind: KindValidation}
	ErrNotFoundOrNotPending       = &Error{Kind: KindNotFoundOrNotPending}
	ErrNotFoundOrAlreadyProcessed = &Error{Kind: KindNotFoundOrAlreadyProcessed}
	ErrListingAlreadyOccupied     = &Error{Kind: KindListingAlreadyOccupied}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrInternal                   = &Error{Kind: KindInternal}
)

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotFoundOrNotPending(message string) *Error {
	return &Error{Kind: KindNotFoundOrNotPending, Message: message}
}

func NotFoundOrAlreadyProcessed(message string) *Error {
	return &Error{Kind: KindNotFoundOrAlreadyProcessed, Message: message}
}

// NotFound is for plain reads, where existence is not a secret.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func ListingAlreadyOccupied(message string) *Error {
	return &Error{Kind: KindListingAlreadyOccupied, Message: message}
}

// Internal wraps a storage or transport failure. The cause is kept for logging only.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the taxonomy kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As returns err as *Error, wrapping unclassified errors as internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error", err)
}

// HTTPStatus maps a kind to the status code used by the HTTP layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFoundOrNotPending, KindNotFoundOrAlreadyProcessed, KindNotFound:
		return http.StatusNotFound
	case KindListingAlreadyOccupied:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
