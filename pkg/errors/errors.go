package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Condition language failures.
	ErrInvalidDurationFormat = New("INVALID_DURATION_FORMAT", http.StatusBadRequest, "invalid duration format")
	ErrInvalidTimeFormat     = New("INVALID_TIME_FORMAT", http.StatusBadRequest, "invalid time format")
	ErrUnknownOperator       = New("UNKNOWN_OPERATOR", http.StatusBadRequest, "unknown operator")
	ErrTypeMismatch          = New("TYPE_MISMATCH", http.StatusUnprocessableEntity, "comparison operands are not comparable")
	ErrInvalidConditionType  = New("INVALID_CONDITION_TYPE", http.StatusBadRequest, "invalid condition type")

	// Rule set store failures.
	ErrRuleNotFound     = New("RULE_NOT_FOUND", http.StatusNotFound, "rule not found")
	ErrRuleSetNotFound  = New("RULE_SET_NOT_FOUND", http.StatusNotFound, "rule set not found")
	ErrNoUnsavedRuleSet = New("NO_UNSAVED_RULE_SET", http.StatusConflict, "no unsaved rule set exists")
	ErrNoActiveRuleSet  = New("NO_ACTIVE_RULE_SET", http.StatusPreconditionFailed, "no active rule set")
	ErrRuleSetSaved     = New("RULE_SET_SAVED", http.StatusConflict, "saved rule sets are immutable")
	ErrDataIntegrity    = New("DATA_INTEGRITY_ERROR", http.StatusInternalServerError, "data integrity violation")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of err carrying a list of per-item messages.
func WithDetails(err *Error, message string, details []string) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Details = append([]string(nil), details...)
	return clone
}

// HasCode reports whether err normalises to an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
