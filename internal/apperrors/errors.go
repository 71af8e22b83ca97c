// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification carried in every error
// response. Clients branch on the kind, never on the message text.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindNotFound             Kind = "NOT_FOUND"
	KindIntentExpired        Kind = "INTENT_EXPIRED"
	KindInsufficientPayment  Kind = "INSUFFICIENT_PAYMENT"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindInvalidSignature     Kind = "INVALID_SIGNATURE"
	KindTokenExpired         Kind = "TOKEN_EXPIRED"
	// KindMalformed classifies unparseable bearer tokens only; corrupt
	// stored material (locators, envelopes) is KindStorageFailure.
	KindMalformed         Kind = "MALFORMED"
	KindGrantMismatch     Kind = "GRANT_MISMATCH"
	KindTransactionFailed Kind = "TRANSACTION_FAILED"
	KindLedgerUnavailable Kind = "LEDGER_UNAVAILABLE"
	KindStorageFailure    Kind = "STORAGE_FAILURE"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL_ERROR"
)

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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two app errors by kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error in the chain, defaulting to
// KindInternal for errors that never passed through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
