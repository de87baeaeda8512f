package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	plain := NewUserError("topic name is required", "Give the topic a name.")
	assert.Equal(t, "topic name is required", plain.Error())
	assert.Equal(t, "Give the topic a name.", plain.Suggestion)

	field := NewUserErrorWithField("created", "someday", "cannot read date", "")
	assert.Equal(t, "created", field.Field)
	assert.Equal(t, "cannot read date: 'someday'", field.Error())

	noValue := NewUserErrorWithField("created", "", "date is required", "")
	assert.Equal(t, "date is required", noValue.Error())
}

func TestSystemError(t *testing.T) {
	cause := errors.New("input/output error")

	err := NewSystemError("cannot read database", cause)
	assert.Equal(t, "cannot read database", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))

	withOp := NewSystemErrorWithOp("backup", "disk full", cause)
	assert.Equal(t, "disk full during backup", withOp.Error())
	assert.True(t, errors.Is(withOp, cause))
}

func TestRecoverableError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewRecoverableError("webhook did not answer", cause)

	assert.Equal(t, "webhook did not answer", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestErrorTypePredicates(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		user        bool
		system      bool
		recoverable bool
	}{
		{"nil", nil, false, false, false},
		{"plain", errors.New("plain"), false, false, false},
		{"user", NewUserError("bad", ""), true, false, false},
		{"wrapped user", fmt.Errorf("add: %w", NewUserError("bad", "")), true, false, false},
		{"system", NewSystemError("disk", nil), false, true, false},
		{"wrapped system", fmt.Errorf("open: %w", NewSystemError("disk", nil)), false, true, false},
		{"recoverable", NewRecoverableError("later", nil), false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.user, IsUserError(tt.err))
			assert.Equal(t, tt.system, IsSystemError(tt.err))
			assert.Equal(t, tt.recoverable, IsRecoverableError(tt.err))
		})
	}
}

func TestAsUserError(t *testing.T) {
	ue, ok := AsUserError(fmt.Errorf("strategy add: %w", NewUserError("no intervals", "Use 1,3,7.")))
	require.True(t, ok)
	assert.Equal(t, "Use 1,3,7.", ue.Suggestion)

	_, ok = AsUserError(errors.New("plain"))
	assert.False(t, ok)
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrValidation, ErrStrategyNotFound, ErrNotFound, ErrPersistence,
		ErrNotification, ErrTopicNotFound, ErrAlreadyLearned, ErrStrategyInUse,
		ErrAmbiguousMatch, ErrWebhookNotFound, ErrInvalidDate, ErrInvalidIntervals,
		ErrInvalidURL, ErrDiskFull, ErrDatabaseCorrupted, ErrNetworkUnavailable,
		ErrLockHeld, ErrTimeout, ErrPermissionDenied,
	}

	seen := make(map[string]bool)
	for _, sentinel := range sentinels {
		msg := sentinel.Error()
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message %q", msg)
		seen[msg] = true
		assert.True(t, errors.Is(fmt.Errorf("ctx: %w", sentinel), sentinel))
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "unknown", CategoryUnknown.String())
	assert.Equal(t, "user", CategoryUser.String())
	assert.Equal(t, "system", CategorySystem.String())
	assert.Equal(t, "recoverable", CategoryRecoverable.String())
	assert.Equal(t, "unknown", Category(99).String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"plain", errors.New("some random error"), CategoryUnknown},
		{"user error", NewUserError("invalid input", ""), CategoryUser},
		{"validation", NewValidationError("name", "", "empty", ""), CategoryUser},
		{"strategy not found", NewStrategyNotFoundError("s1"), CategoryUser},
		{"wrapped strategy in use", fmt.Errorf("delete: %w", ErrStrategyInUse), CategoryUser},
		{"system error", NewSystemError("disk failure", nil), CategorySystem},
		{"persistence", fmt.Errorf("commit: %w", ErrPersistence), CategorySystem},
		{"disk full", ErrDiskFull, CategorySystem},
		{"errno", fmt.Errorf("write: %w", syscall.ENOSPC), CategorySystem},
		{"recoverable error", NewRecoverableError("network issue", nil), CategoryRecoverable},
		{"lock inside system error", NewSystemError("open failed", ErrLockHeld), CategoryRecoverable},
		{"notification", ErrNotification, CategoryRecoverable},
		{"timeout errno", syscall.ETIMEDOUT, CategoryRecoverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("name", "", "empty", ""), http.StatusBadRequest},
		{"invalid date", ErrInvalidDate, http.StatusBadRequest},
		{"strategy not found", NewStrategyNotFoundError("s1"), http.StatusNotFound},
		{"topic not found", fmt.Errorf("get: %w", ErrTopicNotFound), http.StatusNotFound},
		{"strategy in use", ErrStrategyInUse, http.StatusConflict},
		{"already learned", ErrAlreadyLearned, http.StatusConflict},
		{"lock held", ErrLockHeld, http.StatusServiceUnavailable},
		{"persistence", ErrPersistence, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestGetCategorySuggestion(t *testing.T) {
	assert.Contains(t, GetCategorySuggestion(NewUserError("invalid input", "")), "Check your input")
	assert.Contains(t, GetCategorySuggestion(NewSystemError("disk failure", nil)), "revise doctor")
	assert.Contains(t, GetCategorySuggestion(NewRecoverableError("network issue", nil)), "Try again")
	assert.Empty(t, GetCategorySuggestion(errors.New("plain error")))
}

func TestGetExamples(t *testing.T) {
	examples := GetExamples(NewStrategyNotFoundError("x"))
	require.NotEmpty(t, examples)
	assert.Contains(t, examples[0], "revise strategy")

	assert.NotEmpty(t, GetExamples(ErrInvalidIntervals))
	assert.NotEmpty(t, GetExamples(fmt.Errorf("created: %w", ErrInvalidDate)))
	assert.Empty(t, GetExamples(errors.New("unknown")))
}

func TestStackFrameString(t *testing.T) {
	frame := StackFrame{Function: "engine.Revise", File: "/src/engine.go", Line: 42}
	assert.Equal(t, "engine.Revise\n\t/src/engine.go:42", frame.String())
}

func TestGetStack(t *testing.T) {
	err := NewPersistenceError("revise topic", errors.New("txn conflict"))

	stack := GetStack(fmt.Errorf("done: %w", err))
	require.NotEmpty(t, stack)
	assert.True(t, strings.HasSuffix(stack[0].Function, "TestGetStack"),
		"first frame should be the caller, got %s", stack[0].Function)
	for _, f := range stack {
		assert.False(t, strings.HasPrefix(f.Function, "runtime."))
		assert.False(t, strings.HasPrefix(f.Function, "testing."))
	}

	assert.Nil(t, GetStack(errors.New("plain error")))
}

func TestChain(t *testing.T) {
	assert.Nil(t, Chain(nil))
	assert.Equal(t, []string{"single"}, Chain(errors.New("single")))

	inner := errors.New("inner")
	chain := Chain(fmt.Errorf("outer: %w", inner))
	assert.Equal(t, []string{"outer: inner", "inner"}, chain)
}

func TestRootCause(t *testing.T) {
	root := errors.New("root")
	assert.Same(t, root, RootCause(root))

	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("middle: %w", root))
	assert.Same(t, root, RootCause(wrapped))
}

func TestFormatDebugError(t *testing.T) {
	assert.Empty(t, FormatDebugError(nil))

	err := fmt.Errorf("done: %w", NewPersistenceError("revise topic", errors.New("txn conflict")))
	out := FormatDebugError(err)

	assert.Contains(t, out, "Error: done:")
	assert.Contains(t, out, "Error chain:")
	assert.Contains(t, out, "Category: system")
	assert.Contains(t, out, "Stack trace:")
	assert.Contains(t, out, "Root cause: txn conflict")
}
