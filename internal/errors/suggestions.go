package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	// User input errors
	ErrValidation:       "Check your input and try again. Use --help for usage information.",
	ErrStrategyNotFound: "Use 'revise strategy list' to see available strategies.",
	ErrNotFound:         "Use 'revise list' to see your topics.",
	ErrTopicNotFound:    "Use 'revise list' to see your topics. Topics can be named by id, id prefix or exact name.",
	ErrAlreadyLearned:   "Change the topic's strategy with 'revise topic strategy' to schedule more revisions.",
	ErrStrategyInUse:    "Move its topics to another strategy first, or pass --force.",
	ErrAmbiguousMatch:   "Use a longer id prefix or the full id.",
	ErrWebhookNotFound:  "Use 'revise webhook list' to see configured webhooks.",
	ErrInvalidDate:      "Try formats like 'today', 'tomorrow', 'next friday', '3 days ago' or '2024-05-01'.",
	ErrInvalidIntervals: "Intervals are comma separated day offsets, for example '1,3,7,14'.",
	ErrInvalidURL:       "Provide a valid URL starting with https:// (or http:// for localhost).",

	// System errors
	ErrPersistence:        "Run 'revise doctor' to check the database.",
	ErrNotification:       "Check 'revise webhook list' and your network connection. Reminders are retried by the daemon.",
	ErrDiskFull:           "Free up disk space and try again.",
	ErrDatabaseCorrupted:  "Run 'revise doctor' to diagnose and repair database issues.",
	ErrNetworkUnavailable: "Check your internet connection. Notifications will retry automatically.",
	ErrLockHeld:           "Another revise instance is writing. Use 'revise daemon stop' or check for stale processes.",
	ErrTimeout:            "The operation took too long. Try again or check your network connection.",
	ErrPermissionDenied:   "Check file permissions in your data directory (~/.local/share/revise/).",
}

// suggestionOrder lists specific sentinels before the generic ones they
// refine, so that lookups are deterministic.
var suggestionOrder = []error{
	ErrTopicNotFound, ErrWebhookNotFound, ErrAlreadyLearned, ErrStrategyInUse,
	ErrAmbiguousMatch, ErrInvalidDate, ErrInvalidIntervals, ErrInvalidURL,
	ErrStrategyNotFound, ErrNotFound,
	ErrDiskFull, ErrDatabaseCorrupted, ErrNetworkUnavailable, ErrLockHeld,
	ErrTimeout, ErrPermissionDenied, ErrPersistence, ErrNotification, ErrValidation,
}

// GetSuggestion returns a suggestion for an error, if available.
// A UserError's own suggestion wins; otherwise the error chain is matched
// against Suggestions, most specific sentinel first.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}

	for _, knownErr := range suggestionOrder {
		if errors.Is(err, knownErr) {
			return Suggestions[knownErr]
		}
	}

	return ""
}

// GetCategorySuggestion returns a generic suggestion based on error category.
func GetCategorySuggestion(err error) string {
	switch Classify(err) {
	case CategoryUser:
		return "Check your input and try again. Use --help for usage information."
	case CategorySystem:
		return "Run 'revise doctor' to check the database and disk."
	case CategoryRecoverable:
		return "Try again in a moment."
	}
	return ""
}

// CommandExamples provides example commands for common errors.
var CommandExamples = map[error][]string{
	ErrStrategyNotFound: {
		"revise strategy list",
		"revise add \"Graph algorithms\" --strategy Standard",
	},
	ErrInvalidIntervals: {
		"revise strategy add Weekly 7,14,21,28",
		"revise strategy add Cram 1,1,2,3",
	},
	ErrInvalidDate: {
		"revise due tomorrow",
		"revise add \"Linear algebra\" --created \"3 days ago\"",
		"revise calendar next week",
	},
}

// GetExamples returns example commands for an error.
func GetExamples(err error) []string {
	for _, knownErr := range []error{ErrStrategyNotFound, ErrInvalidIntervals, ErrInvalidDate} {
		if errors.Is(err, knownErr) {
			return CommandExamples[knownErr]
		}
	}
	return nil
}
