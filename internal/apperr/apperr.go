// Package apperr defines the error kinds shared by the stores, the domain services and the
// HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindDuplicate
	KindNoContent
	KindValidation
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindNoContent:
		return "no_content"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Reason refines a Kind so callers can tell apart conditions that share one kind.
type Reason string

const (
	ReasonNone Reason = ""

	// Duplicate reasons
	ReasonUserExists         Reason = "user_exists"
	ReasonNicknameTaken      Reason = "nickname_taken"
	ReasonAlreadyInGroup     Reason = "already_in_group"
	ReasonAlreadyInThisGroup Reason = "already_in_this_group"

	// Unauthenticated reasons
	ReasonMissingHeader  Reason = "missing_header"
	ReasonInvalidFormat  Reason = "invalid_format"
	ReasonTokenExpired   Reason = "token_expired"
	ReasonInvalidClaims  Reason = "invalid_claims"
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonMalformedToken Reason = "malformed_token"
)

// Error is the concrete error type carried across layers.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code is the value reported in the error_code field of responses.
func (e *Error) Code() string {
	if e.Reason != ReasonNone {
		return fmt.Sprintf("%s/%s", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Duplicate(reason Reason, format string, args ...any) error {
	return &Error{Kind: KindDuplicate, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// NoContent signals a successful query with an empty result.
func NoContent(format string, args ...any) error {
	return &Error{Kind: KindNoContent, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(reason Reason, message string) error {
	return &Error{Kind: KindUnauthenticated, Reason: reason, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Errors that do not carry a kind are internal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf reports the reason attached to err, if any.
func ReasonOf(err error) Reason {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ReasonNone
}

// Is reports whether err carries the given kind. A nil error is never of any kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
