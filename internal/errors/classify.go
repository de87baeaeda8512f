package errors

import (
	"errors"
	"net/http"
	"syscall"
)

// Category groups errors by who can act on them.
type Category int

const (
	CategoryUnknown Category = iota
	// CategoryUser errors are fixed by changing the input.
	CategoryUser
	// CategorySystem errors come from the database or the machine.
	CategorySystem
	// CategoryRecoverable errors go away on retry: a held database lock or
	// a failed webhook delivery.
	CategoryRecoverable
)

func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

var (
	userSentinels = []error{
		ErrValidation, ErrNotFound, ErrTopicNotFound, ErrStrategyNotFound,
		ErrStrategyInUse, ErrAlreadyLearned, ErrAmbiguousMatch,
		ErrWebhookNotFound, ErrInvalidDate, ErrInvalidIntervals, ErrInvalidURL,
	}
	systemSentinels = []error{
		ErrPersistence, ErrDiskFull, ErrDatabaseCorrupted, ErrPermissionDenied,
	}
	recoverableSentinels = []error{
		ErrNotification, ErrLockHeld, ErrTimeout, ErrNetworkUnavailable,
	}
)

func matchesAny(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// Classify determines the category of an error. Domain sentinels win over
// the wrapper type, so a SystemError wrapping a held lock is recoverable.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryUnknown
	case matchesAny(err, recoverableSentinels):
		return CategoryRecoverable
	case matchesAny(err, userSentinels):
		return CategoryUser
	case matchesAny(err, systemSentinels):
		return CategorySystem
	case IsUserError(err):
		return CategoryUser
	case IsRecoverableError(err):
		return CategoryRecoverable
	case IsSystemError(err):
		return CategorySystem
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ETIMEDOUT,
			syscall.ECONNREFUSED, syscall.ECONNRESET:
			return CategoryRecoverable
		case syscall.ENOSPC, syscall.EACCES, syscall.EPERM,
			syscall.ENOENT, syscall.EIO, syscall.EROFS:
			return CategorySystem
		}
	}
	return CategoryUnknown
}

// HTTPStatus maps an error to the status code the local API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrStrategyInUse),
		errors.Is(err, ErrAlreadyLearned),
		errors.Is(err, ErrAmbiguousMatch):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrTopicNotFound),
		errors.Is(err, ErrStrategyNotFound),
		errors.Is(err, ErrWebhookNotFound):
		return http.StatusNotFound
	}

	switch Classify(err) {
	case CategoryUser:
		return http.StatusBadRequest
	case CategoryRecoverable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
