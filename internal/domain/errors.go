package domain

import (
	"errors"
	"fmt"
)

// ErrCode classifies business-rule failures so handlers can pick a status and message.
type ErrCode string

const (
	ErrNotFound             ErrCode = "NOT_FOUND"
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrUserMismatch         ErrCode = "USER_MISMATCH"
	ErrValidationFailed     ErrCode = "VALIDATION_FAILED"
	ErrInsufficientStock    ErrCode = "INSUFFICIENT_STOCK"
	ErrOutOfStock           ErrCode = "OUT_OF_STOCK"
	ErrInvalidQuantity      ErrCode = "INVALID_QUANTITY"
	ErrEmptyCart            ErrCode = "EMPTY_CART"
	ErrDuplicateReview      ErrCode = "DUPLICATE_REVIEW"
	ErrNotPurchased         ErrCode = "NOT_PURCHASED"
	ErrNotCancellable       ErrCode = "NOT_CANCELLABLE"
	ErrNotDeletable         ErrCode = "NOT_DELETABLE"
	ErrAlreadyFulfilled     ErrCode = "ALREADY_FULFILLED"
	ErrAlreadyCancelled     ErrCode = "ALREADY_CANCELLED"
	ErrInvalidClaimCode     ErrCode = "INVALID_CLAIM_CODE"
	ErrConflict             ErrCode = "CONFLICT"
	ErrUnauthorized         ErrCode = "UNAUTHORIZED"
	ErrConfigurationMissing ErrCode = "CONFIGURATION_MISSING"
	ErrDependencyFailure    ErrCode = "DEPENDENCY_FAILURE"
)

// Error is a coded failure carrying a message that is safe to show to the user.
type Error struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a coded error with a user-facing message.
func E(code ErrCode, msg string) error { return &Error{Code: code, Message: msg} }

// Ef is E with formatting.
func Ef(code ErrCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code ErrCode, msg string, err error) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the code of a coded error, or "" for anything else.
func CodeOf(err error) ErrCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrCode) bool { return err != nil && CodeOf(err) == code }
