package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("name", "", "topic name is required", "Give the topic a name.")

	assert.Equal(t, "topic name is required", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsUserError(err))
	assert.Equal(t, CategoryUser, Classify(err))
	assert.Equal(t, "Give the topic a name.", GetSuggestion(err))

	ue, ok := AsUserError(fmt.Errorf("create: %w", err))
	require.True(t, ok)
	assert.Equal(t, "name", ue.Field)
}

func TestValidationErrorCause(t *testing.T) {
	err := NewValidationError("topic", "abc", "topic is already learned", "")
	err.Cause = ErrAlreadyLearned

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrAlreadyLearned))
	assert.Equal(t, Suggestions[ErrAlreadyLearned], GetSuggestion(err))
}

func TestStrategyNotFoundError(t *testing.T) {
	err := NewStrategyNotFoundError("s-1")

	assert.Contains(t, err.Error(), "s-1")
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.True(t, IsUserError(err))
	assert.Equal(t, Suggestions[ErrStrategyNotFound], GetSuggestion(err))

	none := NewStrategyNotFoundError("")
	assert.Equal(t, "no strategy available", none.Error())
}

func TestNotFoundError(t *testing.T) {
	topic := NewNotFoundError("topic", "t-1")
	assert.Equal(t, "topic not found: 't-1'", topic.Error())
	assert.True(t, errors.Is(topic, ErrNotFound))
	assert.True(t, errors.Is(topic, ErrTopicNotFound))
	assert.False(t, errors.Is(topic, ErrWebhookNotFound))
	assert.Equal(t, Suggestions[ErrTopicNotFound], GetSuggestion(topic))

	hook := NewNotFoundError("webhook", "ops")
	assert.True(t, errors.Is(hook, ErrWebhookNotFound))
	assert.Equal(t, Suggestions[ErrWebhookNotFound], GetSuggestion(hook))
	assert.Equal(t, CategoryUser, Classify(hook))
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewPersistenceError("create topic", cause)

	assert.Contains(t, err.Error(), "create topic")
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsSystemError(err))
	assert.Equal(t, CategorySystem, Classify(err))

	assert.Nil(t, NewPersistenceError("noop", nil))

	again := NewPersistenceError("outer", err)
	assert.Same(t, err, again)
}

func TestNotificationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNotificationError("schedule", cause)

	assert.Equal(t, "notification schedule failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, ErrNotification))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CategoryRecoverable, Classify(err))

	assert.Nil(t, NewNotificationError("cancel", nil))
}

func TestFormatUserErrorIncludesExamples(t *testing.T) {
	out := FormatUserError(NewStrategyNotFoundError("nope"))
	assert.Contains(t, out, "strategy not found")
	assert.Contains(t, out, "Examples:")
	assert.Contains(t, out, "revise strategy list")
}
