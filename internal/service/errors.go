package service

import (
	"errors"
	"fmt"
)

// Kind is the machine-stable error category returned to clients.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindSignatureInvalid   Kind = "signature_invalid"
	KindGatewayUnavailable Kind = "gateway_unavailable"
	KindInvalidTransition  Kind = "invalid_transition"
	KindPaymentNotComplete Kind = "payment_not_complete"
	KindInternal           Kind = "internal"
)

// Error is the only error type the service layer returns to handlers.
// Err keeps the underlying cause for logging and is never rendered.
type Error struct {
	Kind    Kind
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

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func wrapErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func internal(msg string, err error) *Error { return wrapErr(KindInternal, msg, err) }

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
