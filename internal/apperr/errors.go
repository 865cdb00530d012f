// Package apperr defines the error taxonomy shared by services, the scoped
// repository and the HTTP handlers.
package apperr

import (
	"errors"
	"net/http"

	"github.com/diewo77/faktura/validation"
)

// Kind classifies an error for the route boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthenticationRequired
	KindAuthorizationDenied
	KindNotFound
	KindValidation
	KindDomainRule
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindDomainRule:
		return "domain_rule_violation"
	case KindDependency:
		return "dependency_failure"
	default:
		return "internal"
	}
}

// Error is a classified application error. Message is safe to show to the
// caller; Err holds the underlying cause for logs.
type Error struct {
	Kind       Kind
	Message    string
	Violations validation.Violations
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindAuthorizationDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindDomainRule:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is.
var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired, Message: "authentication required"}
	ErrAuthorizationDenied    = &Error{Kind: KindAuthorizationDenied, Message: "access denied"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation             = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrDomainRule             = &Error{Kind: KindDomainRule, Message: "domain rule violated"}
	ErrDependency             = &Error{Kind: KindDependency, Message: "dependency failure"}
)

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Denied(msg string) *Error { return &Error{Kind: KindAuthorizationDenied, Message: msg} }

func DomainRule(msg string) *Error { return &Error{Kind: KindDomainRule, Message: msg} }

// Invalid builds a validation error carrying per-field violations.
func Invalid(msg string, v validation.Violations) *Error {
	return &Error{Kind: KindValidation, Message: msg, Violations: v}
}

// Dependency wraps a storage or provider failure. The message stays generic.
func Dependency(op string, err error) *Error {
	return &Error{Kind: KindDependency, Message: op, Err: err}
}

// From returns the classified error inside err, or wraps err as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err; unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return From(err).Kind
}
