package runtime

import (
	stderrors "errors"

	"github.com/manav03panchal/revise/internal/errors"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitLocked   = 4
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, errors.ErrLockHeld):
		return ExitLocked
	case stderrors.Is(err, errors.ErrNotFound), stderrors.Is(err, errors.ErrStrategyNotFound):
		return ExitNotFound
	case stderrors.Is(err, errors.ErrValidation):
		return ExitUsage
	default:
		return ExitError
	}
}

// FormatError renders err for the terminal. Debug mode adds the error
// chain and any captured stack.
func FormatError(err error, debug bool) string {
	if debug {
		return errors.FormatDebugError(err)
	}
	return errors.FormatUserError(err)
}

// Suggestion returns the hint shown next to err, if any.
func Suggestion(err error) string {
	if s := errors.GetSuggestion(err); s != "" {
		return s
	}
	return errors.GetCategorySuggestion(err)
}
