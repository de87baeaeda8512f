package errors

import (
	"errors"
	"fmt"
)

// ValidationError reports input the engine refused before touching storage.
type ValidationError struct {
	UserError
	Cause error // optional, e.g. ErrAlreadyLearned
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, value, message, suggestion string) *ValidationError {
	return &ValidationError{UserError: UserError{
		Message:    message,
		Field:      field,
		Value:      value,
		Suggestion: suggestion,
	}}
}

func (e *ValidationError) Error() string { return e.UserError.Error() }

// Is matches ErrValidation and the optional cause.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Cause != nil && errors.Is(e.Cause, target))
}

// As exposes the embedded UserError.
func (e *ValidationError) As(target any) bool {
	if t, ok := target.(**UserError); ok {
		*t = &e.UserError
		return true
	}
	return false
}

// StrategyNotFoundError reports a strategy id that does not resolve.
type StrategyNotFoundError struct {
	ID string
}

// NewStrategyNotFoundError creates a StrategyNotFoundError.
func NewStrategyNotFoundError(id string) *StrategyNotFoundError {
	return &StrategyNotFoundError{ID: id}
}

func (e *StrategyNotFoundError) Error() string {
	if e.ID == "" {
		return "no strategy available"
	}
	return fmt.Sprintf("strategy not found: '%s'", e.ID)
}

// Is matches ErrStrategyNotFound.
func (e *StrategyNotFoundError) Is(target error) bool {
	return target == ErrStrategyNotFound
}

// As exposes the error as a UserError.
func (e *StrategyNotFoundError) As(target any) bool {
	if t, ok := target.(**UserError); ok {
		*t = &UserError{
			Message:    e.Error(),
			Field:      "strategy",
			Value:      e.ID,
			Suggestion: Suggestions[ErrStrategyNotFound],
		}
		return true
	}
	return false
}

// NotFoundError reports a missing record such as a topic or instance.
type NotFoundError struct {
	Kind string // "topic", "revision", "webhook", ...
	ID   string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: '%s'", e.Kind, e.ID)
}

// Is matches ErrNotFound, plus the kind specific sentinel.
func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrTopicNotFound:
		return e.Kind == "topic"
	case ErrWebhookNotFound:
		return e.Kind == "webhook"
	}
	return false
}

// As exposes the error as a UserError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**UserError); ok {
		*t = &UserError{
			Message:    e.Error(),
			Field:      e.Kind,
			Value:      e.ID,
			Suggestion: e.suggestion(),
		}
		return true
	}
	return false
}

func (e *NotFoundError) suggestion() string {
	switch e.Kind {
	case "topic":
		return Suggestions[ErrTopicNotFound]
	case "webhook":
		return Suggestions[ErrWebhookNotFound]
	}
	return Suggestions[ErrNotFound]
}

// PersistenceError reports a failed read or write of the store. It records
// where it was raised for --debug output.
type PersistenceError struct {
	Op    string
	Cause error
	stack []StackFrame
}

// NewPersistenceError wraps cause. It returns nil when cause is nil and
// leaves an existing PersistenceError untouched.
func NewPersistenceError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(cause, &pe) {
		return cause
	}
	return &PersistenceError{Op: op, Cause: cause, stack: captureStack(2)}
}

// Stack returns the frames captured when the error was created.
func (e *PersistenceError) Stack() []StackFrame { return e.stack }

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// As exposes the error as a SystemError.
func (e *PersistenceError) As(target any) bool {
	if t, ok := target.(**SystemError); ok {
		*t = &SystemError{Message: "storage failure", Cause: e.Cause, Op: e.Op}
		return true
	}
	return false
}

// NotificationError reports a reminder that could not be scheduled,
// cancelled or delivered. The engine logs these and carries on.
type NotificationError struct {
	Op    string
	Cause error
}

// NewNotificationError wraps cause. It returns nil when cause is nil.
func NewNotificationError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &NotificationError{Op: op, Cause: cause}
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %s failed: %v", e.Op, e.Cause)
}

func (e *NotificationError) Unwrap() error { return e.Cause }

// Is matches ErrNotification.
func (e *NotificationError) Is(target error) bool {
	return target == ErrNotification
}

// As exposes the error as a RecoverableError.
func (e *NotificationError) As(target any) bool {
	if t, ok := target.(**RecoverableError); ok {
		*t = &RecoverableError{Message: e.Error(), Cause: e.Cause}
		return true
	}
	return false
}
