// Package errors defines the error types of revise. Domain errors
// (validation, missing records, storage and notification failures) are
// matched with errors.Is against the sentinels below, and each one also
// presents itself as a UserError, SystemError or RecoverableError so the
// CLI and API can decide how to show it.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrStrategyNotFound   = errors.New("strategy not found")
	ErrNotFound           = errors.New("not found")
	ErrPersistence        = errors.New("persistence failure")
	ErrNotification       = errors.New("notification failure")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrAlreadyLearned     = errors.New("topic already learned")
	ErrStrategyInUse      = errors.New("strategy in use")
	ErrAmbiguousMatch     = errors.New("multiple records match")
	ErrWebhookNotFound    = errors.New("webhook not found")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidIntervals   = errors.New("invalid intervals")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrDiskFull           = errors.New("disk full")
	ErrDatabaseCorrupted  = errors.New("database corrupted")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrLockHeld           = errors.New("database locked by another process")
	ErrTimeout            = errors.New("operation timed out")
	ErrPermissionDenied   = errors.New("permission denied")
)

// UserError is a failure the user can fix by changing their input.
type UserError struct {
	Message    string
	Suggestion string
	// Field and Value name the offending input, when there is one.
	Field string
	Value string
}

func (e *UserError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s: '%s'", e.Message, e.Value)
	}
	return e.Message
}

// NewUserError creates a new UserError.
func NewUserError(message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion}
}

// NewUserErrorWithField creates a UserError that names the offending input.
func NewUserErrorWithField(field, value, message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion, Field: field, Value: value}
}

// SystemError is a failure of the machine revise runs on: the database,
// the disk or the network.
type SystemError struct {
	Message string
	Op      string
	Cause   error
}

func (e *SystemError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Message + " during " + e.Op
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}

// NewSystemError creates a new SystemError.
func NewSystemError(message string, cause error) *SystemError {
	return &SystemError{Message: message, Cause: cause}
}

// NewSystemErrorWithOp creates a SystemError raised while running op.
func NewSystemErrorWithOp(op, message string, cause error) *SystemError {
	return &SystemError{Message: message, Op: op, Cause: cause}
}

// RecoverableError is an error that goes away on retry, such as a database
// lock held by the daemon or a webhook that did not answer.
type RecoverableError struct {
	Message string
	Cause   error
}

func (e *RecoverableError) Error() string {
	return e.Message
}

func (e *RecoverableError) Unwrap() error {
	return e.Cause
}

// NewRecoverableError creates a new RecoverableError.
func NewRecoverableError(message string, cause error) *RecoverableError {
	return &RecoverableError{Message: message, Cause: cause}
}

// IsUserError checks if an error is a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IsSystemError checks if an error is a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// IsRecoverableError checks if an error is a RecoverableError.
func IsRecoverableError(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}

// AsUserError extracts a UserError from an error chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
