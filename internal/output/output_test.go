package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

func day(offset int) time.Time {
	return today.AddDate(0, 0, offset)
}

func plainCLI() (*CLIFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewCLIFormatter(&Formatter{Writer: &buf, Format: FormatCLI, ColorMode: ColorNever}), &buf
}

func sampleTopic() (*model.Topic, timetable.Progress) {
	last := day(-2)
	t := &model.Topic{
		ID:              "0123456789abcdef",
		Name:            "Graphs",
		StrategyID:      "s1",
		CreatedAt:       day(-3),
		RevisionDates:   []time.Time{day(-2), day(0), day(4)},
		LastRevisedDate: &last,
	}
	return t, timetable.DeriveProgress(t.RevisionDates, t.LastRevisedDate, today)
}

func progressOf(t *model.Topic) timetable.Progress {
	return timetable.DeriveProgress(t.RevisionDates, t.LastRevisedDate, today)
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestNewFormatter(t *testing.T) {
	f := NewFormatter()
	assert.NotNil(t, f)
	assert.Equal(t, FormatCLI, f.Format)
	assert.Equal(t, ColorAuto, f.ColorMode)
}

func TestFormatterIsColorEnabled(t *testing.T) {
	t.Run("color_always", func(t *testing.T) {
		f := &Formatter{ColorMode: ColorAlways}
		assert.True(t, f.IsColorEnabled())
	})

	t.Run("color_never", func(t *testing.T) {
		f := &Formatter{ColorMode: ColorNever}
		assert.False(t, f.IsColorEnabled())
	})

	t.Run("color_auto_non_terminal", func(t *testing.T) {
		f := &Formatter{Writer: &bytes.Buffer{}, ColorMode: ColorAuto}
		assert.False(t, f.IsColorEnabled())
	})

	t.Run("plain_never_colors", func(t *testing.T) {
		f := &Formatter{Format: FormatPlain, ColorMode: ColorAuto}
		assert.False(t, f.IsColorEnabled())
	})
}

func TestFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}
	require.NoError(t, f.JSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestFormatRelative(t *testing.T) {
	tests := []struct {
		days     int
		expected string
	}{
		{0, "today"},
		{1, "tomorrow"},
		{5, "in 5 days"},
		{-1, "1 day overdue"},
		{-3, "3 days overdue"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatRelative(tt.days))
	}
}

func TestFormatDay(t *testing.T) {
	assert.Equal(t, "2024-06-15", FormatDay(today))
	assert.Equal(t, "Sat, Jun 15", FormatDayLong(today))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(1, 2, 10))
	assert.Equal(t, "██████████", ProgressBar(5, 3, 10))
	assert.Equal(t, "░░░░", ProgressBar(0, 0, 4))
	assert.Equal(t, "░░░░", ProgressBar(-1, 4, 4))
}

// =============================================================================
// CLI Tests
// =============================================================================

func TestCLIMessages(t *testing.T) {
	c, buf := plainCLI()
	c.Title("Title")
	c.Success("ok")
	c.Warning("careful")
	c.Error("bad")
	c.Muted("quiet")
	assert.Equal(t, "Title\n✓ ok\n⚠ careful\n✗ bad\nquiet\n", buf.String())
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "due today", StatusLabel(timetable.StatusDueToday))
	assert.Equal(t, "overdue", StatusLabel(timetable.StatusOverdue))
	assert.Equal(t, "learned", StatusLabel(timetable.StatusLearned))
	assert.Equal(t, "upcoming", StatusLabel(timetable.StatusUpcoming))
}

func TestNextLabel(t *testing.T) {
	_, p := sampleTopic()
	assert.Equal(t, "2024-06-15 (today)", NextLabel(p, today))
	assert.Equal(t, "-", NextLabel(timetable.Progress{Learned: true}, today))
}

func TestPrintTopic(t *testing.T) {
	c, buf := plainCLI()
	topic, p := sampleTopic()
	c.PrintTopic(topic, model.NewStrategy("Quick", []int{1, 3, 7}), p, today)

	out := buf.String()
	assert.Contains(t, out, "Graphs\n")
	assert.Contains(t, out, "Strategy: Quick (1,3,7)")
	assert.Contains(t, out, "Last revised: 2024-06-13")
	assert.Contains(t, out, "Status: due today")
	assert.Contains(t, out, "●  1. 2024-06-13")
	assert.Contains(t, out, "◐  2. 2024-06-15")
	assert.Contains(t, out, "○  3. 2024-06-19")
}

func TestPrintTopicMissingStrategy(t *testing.T) {
	c, buf := plainCLI()
	topic, p := sampleTopic()
	c.PrintTopic(topic, nil, p, today)
	assert.Contains(t, buf.String(), "Strategy: s1 (missing)")
}

func TestPrintTopicCreated(t *testing.T) {
	c, buf := plainCLI()
	topic, p := sampleTopic()
	c.PrintTopicCreated(topic, model.NewStrategy("Quick", []int{1, 3, 7}), p, today)
	assert.Contains(t, buf.String(), "✓ Added Graphs")
	assert.Contains(t, buf.String(), "Next: 2024-06-15 (today)")
}

func TestPrintRevised(t *testing.T) {
	c, buf := plainCLI()
	topic, p := sampleTopic()
	c.PrintRevised(topic, p, today)
	assert.Contains(t, buf.String(), "✓ Revised Graphs")
	assert.Contains(t, buf.String(), "1/3")

	buf.Reset()
	c.PrintRevised(topic, timetable.Progress{Learned: true, Status: timetable.StatusLearned}, today)
	assert.Equal(t, "✓ Graphs is learned\n", buf.String())
}

func TestPrintTopics(t *testing.T) {
	c, buf := plainCLI()
	topic, _ := sampleTopic()
	c.PrintTopics([]*model.Topic{topic}, progressOf, today)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "TOPIC")
	assert.Contains(t, string(lines[2]), "01234567")
	assert.Contains(t, string(lines[2]), "due today")
	assert.Contains(t, string(lines[2]), "1/3")
}

func TestPrintTopicsEmpty(t *testing.T) {
	c, buf := plainCLI()
	c.PrintTopics(nil, progressOf, today)
	assert.Contains(t, buf.String(), "No topics yet.")
}

func TestPrintDue(t *testing.T) {
	c, buf := plainCLI()
	next := day(-2)
	overdue := &model.Topic{Name: "Trees", NextRevisionDate: &next}
	due := []*model.RevisionInstance{{TopicName: "Graphs", ScheduledDate: "2024-06-15"}}

	c.PrintDue(today, due, []*model.Topic{overdue}, today)
	out := buf.String()
	assert.Contains(t, out, "Due Sat, Jun 15")
	assert.Contains(t, out, "• Graphs")
	assert.Contains(t, out, "• Trees (since 2024-06-13, 2 days overdue)")

	buf.Reset()
	c.PrintDue(today, nil, nil, today)
	assert.Equal(t, "Nothing due on Sat, Jun 15.\n", buf.String())
}

func TestPrintCalendar(t *testing.T) {
	c, buf := plainCLI()
	c.PrintCalendar([]*model.RevisionInstance{
		{TopicName: "Graphs", ScheduledDate: "2024-06-15", IsCompleted: true},
		{TopicName: "Trees", ScheduledDate: "2024-06-15"},
		{TopicName: "Heaps", ScheduledDate: "2024-06-16"},
	})
	assert.Equal(t, "Sat, Jun 15\n  ● Graphs\n  ○ Trees\n\nSun, Jun 16\n  ○ Heaps\n", buf.String())
}

func TestPrintStrategies(t *testing.T) {
	c, buf := plainCLI()
	c.PrintStrategies(model.DefaultStrategies())
	assert.Contains(t, buf.String(), "Standard")
	assert.Contains(t, buf.String(), "1,3,7,14,30,60")
}

func TestPrintWebhooks(t *testing.T) {
	c, buf := plainCLI()
	w := model.NewWebhook("phone", model.WebhookTypeGeneric, "https://example.com/hook")
	w.Enabled = false
	c.PrintWebhooks([]*model.Webhook{w})
	assert.Contains(t, buf.String(), "phone")
	assert.Contains(t, buf.String(), "disabled")
	assert.Contains(t, buf.String(), "never")
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{30 * time.Hour, "yesterday"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAgo(now.Add(-tt.ago), now))
	}
}

func TestNewWebhookOutputMasksTarget(t *testing.T) {
	w := model.NewWebhook("ops", model.WebhookTypeDiscord, "https://discord.com/api/webhooks/1/secret")
	out := NewWebhookOutput(w)
	assert.Equal(t, "https://discord.com/api/***", out.Target)
	assert.Nil(t, out.LastUsed)

	w.LastUsed = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	assert.NotNil(t, NewWebhookOutput(w).LastUsed)
}

// =============================================================================
// JSON Tests
// =============================================================================

func TestNewTopicOutput(t *testing.T) {
	topic, p := sampleTopic()
	out := NewTopicOutput(topic, p, today)

	assert.Equal(t, []string{"2024-06-13", "2024-06-15", "2024-06-19"}, out.RevisionDates)
	require.NotNil(t, out.LastRevisedDate)
	assert.Equal(t, "2024-06-13", *out.LastRevisedDate)
	require.NotNil(t, out.NextRevisionDate)
	assert.Equal(t, "2024-06-15", *out.NextRevisionDate)
	require.NotNil(t, out.DaysUntilNext)
	assert.Zero(t, *out.DaysUntilNext)
	assert.Equal(t, "due_today", out.Status)
	assert.Equal(t, 1, out.Completed)
}

func TestNewTopicOutputLearned(t *testing.T) {
	topic := &model.Topic{ID: "x", Name: "Done", CreatedAt: today}
	out := NewTopicOutput(topic, timetable.DeriveProgress(nil, nil, today), today)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nextRevisionDate":null`)
	assert.Contains(t, string(data), `"revisionDates":[]`)
	assert.NotContains(t, string(data), "daysUntilNext")
	assert.True(t, out.IsLearned)
}

func TestNewInstanceOutput(t *testing.T) {
	at := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	out := NewInstanceOutput(&model.RevisionInstance{ID: "r", ScheduledDate: "2024-06-15", IsCompleted: true, CompletedAt: &at})
	require.NotNil(t, out.CompletedAt)
	assert.Equal(t, "2024-06-15T10:30:00Z", *out.CompletedAt)
}

func TestJSONPrintDue(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONFormatter(&Formatter{Writer: &buf, Format: FormatJSON})
	require.NoError(t, j.PrintDue(today, nil, nil, progressOf, today))

	var got DueResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2024-06-15", got.Day)
	assert.NotNil(t, got.Due)
	assert.NotNil(t, got.Overdue)
}

func TestJSONPrintStrategies(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONFormatter(&Formatter{Writer: &buf})
	require.NoError(t, j.PrintStrategies([]*model.Strategy{{ID: "s", Name: "Empty"}}))
	assert.Contains(t, buf.String(), `"intervals": []`)
}

func TestJSONPrintError(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONFormatter(&Formatter{Writer: &buf})
	require.NoError(t, j.PrintError(errors.New("boom"), "try again"))

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, "try again", got.Suggestion)
}
