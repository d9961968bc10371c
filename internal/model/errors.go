package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes client failures.
type ErrorCode string

const (
	// CodeValidation means a precondition failed before any request was sent.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeNetwork means the transport or the server failed transiently.
	CodeNetwork ErrorCode = "NETWORK"

	// CodeAuth means the server rejected the credential on an authenticated call.
	CodeAuth ErrorCode = "AUTH"

	// CodeInvalidTransition means the requested status is not reachable.
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// CodeNotFound means the referenced order or item does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is the single error type surfaced by the client core.
//
// Message is always a sentence that can be shown to the user as is.
// Err keeps the underlying cause for logs and errors.Is/As.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrNetwork           = &Error{Code: CodeNetwork}
	ErrAuth              = &Error{Code: CodeAuth}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrNotFound          = &Error{Code: CodeNotFound}
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Err == nil && t.Code == e.Code
}

// NewValidationError reports an unmet precondition.
func NewValidationError(op, message string) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: message}
}

// NewNetworkError wraps a transport or server failure.
func NewNetworkError(op string, err error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Op:      op,
		Message: "could not reach the server, please try again",
		Err:     err,
	}
}

// NewAuthError reports a rejected credential.
func NewAuthError(op, message string) *Error {
	if message == "" {
		message = "your session has expired, please log in again"
	}
	return &Error{Code: CodeAuth, Op: op, Message: message}
}

// NewInvalidTransitionError reports an unreachable status change.
func NewInvalidTransitionError(op string, from, to OrderStatus) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("an order that is %s cannot be moved to %s", from, to),
	}
}

// NewNotFoundError reports a missing server-side resource.
func NewNotFoundError(op, what, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s %s was not found", what, id),
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the human-readable message for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsNetwork reports whether err is a transient transport failure.
func IsNetwork(err error) bool { return CodeOf(err) == CodeNetwork }

// IsAuth reports whether err is a rejected credential.
func IsAuth(err error) bool { return CodeOf(err) == CodeAuth }

// IsInvalidTransition reports whether err is an unreachable status change.
func IsInvalidTransition(err error) bool { return CodeOf(err) == CodeInvalidTransition }

// IsNotFound reports whether err is a missing resource.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
