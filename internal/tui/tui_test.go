package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/runtime"
	"github.com/manav03panchal/revise/internal/timetable"
)

// Saturday morning.
var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)

// clock is what the engine sees as the current time.
var clock = now

func setupDashboard(t *testing.T) (*engine.Engine, *DashboardModel) {
	t.Helper()
	ctx := context.Background()
	clock = now
	rt, err := runtime.New(ctx, runtime.Options{
		InMemory: true,
		Now:      func() time.Time { return clock },
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	m := NewDashboardModel(ctx, DashboardConfig{Engine: rt.Engine})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return rt.Engine, m
}

// addTopic creates a topic as it was daysAgo, so that its first revision
// falls due on schedule and goes overdue as the clock comes back to now.
func addTopic(t *testing.T, e *engine.Engine, name string, daysAgo int) *model.Topic {
	t.Helper()
	clock = now.AddDate(0, 0, -daysAgo)
	defer func() { clock = now }()

	topic, err := e.CreateTopicWithDefault(context.Background(), name)
	require.NoError(t, err)
	return topic
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBarWidth(t *testing.T) {
	bar10 := ProgressBar(50, 10)
	bar20 := ProgressBar(50, 20)
	assert.Greater(t, len(bar20), len(bar10))

	for _, pct := range []float64{-10, 0, 100, 150} {
		assert.NotEmpty(t, ProgressBar(pct, 10))
	}
}

// =============================================================================
// Component Tests
// =============================================================================

func TestEntryLabel(t *testing.T) {
	next := time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)
	overdue := Entry{
		Progress:  timetable.Progress{NextDue: &next, Status: timetable.StatusOverdue},
		DaysUntil: -3,
	}
	assert.Equal(t, "3 days overdue", overdue.Label())

	learned := Entry{Progress: timetable.Progress{Learned: true, Status: timetable.StatusLearned}}
	assert.Equal(t, "learned", learned.Label())
}

func TestDueListComponentEmpty(t *testing.T) {
	dc := &DueListComponent{Width: 80}
	assert.Contains(t, dc.View(), "All caught up")
}

func TestUpcomingComponentLimit(t *testing.T) {
	next := time.Date(2024, 6, 16, 0, 0, 0, 0, time.Local)
	var entries []Entry
	for _, name := range []string{"One", "Two", "Three"} {
		entries = append(entries, Entry{
			Topic:     &model.Topic{Name: name},
			Progress:  timetable.Progress{NextDue: &next, Status: timetable.StatusUpcoming},
			DaysUntil: 1,
		})
	}

	view := (&UpcomingComponent{Entries: entries, Width: 80, Limit: 2}).View()
	assert.Contains(t, view, "One")
	assert.Contains(t, view, "Two")
	assert.NotContains(t, view, "Three")
	assert.Contains(t, view, "and 1 more")

	empty := (&UpcomingComponent{Width: 80}).View()
	assert.Contains(t, empty, "Nothing scheduled")
}

func TestSummaryComponent(t *testing.T) {
	view := (&SummaryComponent{Total: 4, Learned: 1, Due: 1, Overdue: 2, Width: 80}).View()
	assert.Contains(t, view, "topics")
	assert.Contains(t, view, "25%")
}

func TestHelpBar(t *testing.T) {
	help := HelpBar()
	assert.Contains(t, help, "mark revised")
	assert.Contains(t, help, "quit")
}

// =============================================================================
// DashboardModel Tests
// =============================================================================

func TestDashboardLoading(t *testing.T) {
	m := NewDashboardModel(context.Background(), DashboardConfig{})
	assert.Equal(t, "Loading...", m.View())
	assert.Equal(t, 30*time.Second, m.refreshInterval)
	assert.Equal(t, 7, m.upcomingDays)
}

func TestDashboardGroupsTopics(t *testing.T) {
	e, m := setupDashboard(t)
	addTopic(t, e, "Overdue topic", 3)  // due 6/13
	addTopic(t, e, "Due topic", 1)      // due 6/15
	addTopic(t, e, "Upcoming topic", 0) // due 6/16

	m.Update(refreshMsg{})

	require.Len(t, m.due, 2)
	assert.Equal(t, "Overdue topic", m.due[0].Topic.Name)
	assert.Equal(t, "Due topic", m.due[1].Topic.Name)
	assert.Equal(t, 1, m.overdue)
	require.Len(t, m.upcoming, 1)
	assert.Equal(t, "Upcoming topic", m.upcoming[0].Topic.Name)
	assert.Equal(t, 3, m.total)

	view := m.View()
	assert.Contains(t, view, "Revision Dashboard")
	assert.Contains(t, view, "Overdue topic")
	assert.Contains(t, view, "2 days overdue")
	assert.Contains(t, view, "Upcoming topic")
}

func TestDashboardCursor(t *testing.T) {
	e, m := setupDashboard(t)
	addTopic(t, e, "A", 3)
	addTopic(t, e, "B", 1)
	m.Update(refreshMsg{})

	m.Update(key("up"))
	assert.Equal(t, 0, m.cursor)
	m.Update(key("down"))
	assert.Equal(t, 1, m.cursor)
	m.Update(key("j"))
	assert.Equal(t, 1, m.cursor)
	m.Update(key("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestDashboardMarkRevised(t *testing.T) {
	e, m := setupDashboard(t)
	a := addTopic(t, e, "A", 3)
	addTopic(t, e, "B", 1)
	m.Update(refreshMsg{})

	m.Update(key("down"))
	m.Update(key("enter"))

	require.NoError(t, m.err)
	require.Len(t, m.due, 1)
	assert.Equal(t, a.ID, m.due[0].Topic.ID)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.message, "Revised B")
	assert.Len(t, m.upcoming, 1)

	m.Update(key("enter"))
	assert.Empty(t, m.due)

	m.Update(key("enter"))
	assert.Equal(t, "Nothing due", m.message)
}

func TestDashboardQuit(t *testing.T) {
	_, m := setupDashboard(t)
	for _, k := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if k == "ctrl+c" {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		} else {
			msg = key(k)
		}
		_, cmd := m.Update(msg)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	}
}

func TestDashboardTickClearsMessage(t *testing.T) {
	_, m := setupDashboard(t)
	m.setMessage("hello", time.Second)

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.Equal(t, "hello", m.message)
	assert.NotNil(t, cmd)

	m.Update(tickMsg(time.Now().Add(2 * time.Second)))
	assert.Empty(t, m.message)
}

func TestDashboardTickReloads(t *testing.T) {
	e, m := setupDashboard(t)
	m.Update(refreshMsg{})
	assert.Zero(t, m.total)

	addTopic(t, e, "Later", 0)
	m.Update(tickMsg(time.Now()))
	assert.Zero(t, m.total)

	m.Update(tickMsg(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, m.total)
}
