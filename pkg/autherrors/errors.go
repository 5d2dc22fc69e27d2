package autherrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of authentication failure. Callers branch on the
// kind rather than on error strings, and the HTTP layer maps each kind to a
// status code.
type Kind string

const (
	// OAuth2/OIDC protocol failures
	KindInvalidState       Kind = "INVALID_STATE"
	KindStateExpired       Kind = "STATE_EXPIRED"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindInvalidIssuer      Kind = "INVALID_ISSUER"
	KindInvalidAudience    Kind = "INVALID_AUDIENCE"
	KindJwksError          Kind = "JWKS_ERROR"
	KindTokenExchangeError Kind = "TOKEN_EXCHANGE_ERROR"
	KindConfigurationError Kind = "CONFIGURATION_ERROR"

	// Session and access-token failures
	KindSessionNotFound Kind = "SESSION_NOT_FOUND"
	KindTokenNotFound   Kind = "TOKEN_NOT_FOUND"
	KindInvalidScope    Kind = "INVALID_SCOPE"

	KindInternal Kind = "INTERNAL_ERROR"
)

// Error is a kinded authentication error. It wraps an optional underlying
// cause for errors.Is/errors.As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new Error wrapping an underlying cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Errors that are not *Error
// report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status the HTTP surface returns.
// Client-caused protocol failures are 400, credential problems 401,
// infrastructure failures 500.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidState, KindStateExpired, KindInvalidScope:
		return http.StatusBadRequest
	case KindTokenExpired, KindInvalidToken, KindInvalidIssuer,
		KindInvalidAudience, KindSessionNotFound, KindTokenNotFound:
		return http.StatusUnauthorized
	case KindJwksError, KindTokenExchangeError, KindConfigurationError, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf is a convenience for HTTPStatus(KindOf(err))
func StatusOf(err error) int {
	return HTTPStatus(KindOf(err))
}
