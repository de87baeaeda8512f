package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/timetable"
)

// tickMsg is sent once a second.
type tickMsg time.Time

// refreshMsg asks the dashboard to reload its data.
type refreshMsg struct{}

// DashboardModel is the bubbletea model of the revision dashboard.
type DashboardModel struct {
	ctx    context.Context
	engine *engine.Engine

	// Data
	due      []Entry
	upcoming []Entry
	total    int
	learned  int
	overdue  int
	loadedAt time.Time

	// UI state
	cursor     int
	width      int
	height     int
	err        error
	message    string
	messageExp time.Time

	// Configuration
	refreshInterval time.Duration
	upcomingDays    int
	maxUpcoming     int
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	Engine *engine.Engine
	// RefreshInterval is how often data is reloaded. Defaults to 30s.
	RefreshInterval time.Duration
	// UpcomingDays is the look-ahead of the upcoming list. Defaults to 7.
	UpcomingDays int
	MaxUpcoming  int
}

// NewDashboardModel creates a dashboard model.
func NewDashboardModel(ctx context.Context, config DashboardConfig) *DashboardModel {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 30 * time.Second
	}
	if config.UpcomingDays == 0 {
		config.UpcomingDays = 7
	}
	if config.MaxUpcoming == 0 {
		config.MaxUpcoming = 8
	}

	return &DashboardModel{
		ctx:             ctx,
		engine:          config.Engine,
		refreshInterval: config.RefreshInterval,
		upcomingDays:    config.UpcomingDays,
		maxUpcoming:     config.MaxUpcoming,
	}
}

// Init initializes the model.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.refreshCmd(),
	)
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		if !m.messageExp.IsZero() && now.After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		if now.Sub(m.loadedAt) >= m.refreshInterval {
			m.loadData()
		}
		return m, m.tickCmd()

	case refreshMsg:
		m.loadData()
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.due)-1 {
			m.cursor++
		}

	case "enter", " ", "d":
		m.markSelected()

	case "r":
		m.loadData()
		m.setMessage("Refreshed", time.Second)
	}

	return m, nil
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.message != "" {
		sections = append(sections, StyleSuccess.Render(m.message))
	}

	summary := &SummaryComponent{
		Total:   m.total,
		Learned: m.learned,
		Due:     len(m.due) - m.overdue,
		Overdue: m.overdue,
		Width:   m.width,
	}
	sections = append(sections, summary.View())

	dueList := &DueListComponent{Entries: m.due, Cursor: m.cursor, Width: m.width}
	sections = append(sections, dueList.View())

	upcoming := &UpcomingComponent{Entries: m.upcoming, Width: m.width, Limit: m.maxUpcoming}
	sections = append(sections, upcoming.View())

	sections = append(sections, HelpBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader() string {
	title := StyleTitle.Render("Revision Dashboard")
	day := StyleSubtitle.Render(output.FormatDayLong(m.engine.Now()))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", day) + "\n"
}

// loadData reloads topics and regroups them as of today.
func (m *DashboardModel) loadData() {
	topics, err := m.engine.QueryAll(m.ctx)
	if err != nil {
		m.err = err
		return
	}

	today := m.engine.Today()
	m.due, m.upcoming = nil, nil
	m.total, m.learned, m.overdue = len(topics), 0, 0

	for _, t := range topics {
		p := m.engine.Progress(t)
		e := Entry{Topic: t, Progress: p, DaysUntil: p.DaysUntil(today)}
		switch p.Status {
		case timetable.StatusLearned:
			m.learned++
		case timetable.StatusOverdue:
			m.overdue++
			m.due = append(m.due, e)
		case timetable.StatusDueToday:
			m.due = append(m.due, e)
		default:
			if e.DaysUntil <= m.upcomingDays {
				m.upcoming = append(m.upcoming, e)
			}
		}
	}

	if m.cursor >= len(m.due) {
		m.cursor = len(m.due) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.loadedAt = time.Now()
	m.err = nil
}

// markSelected records a revision of the topic under the cursor.
func (m *DashboardModel) markSelected() {
	if len(m.due) == 0 {
		m.setMessage("Nothing due", 2*time.Second)
		return
	}

	entry := m.due[m.cursor]
	topic, err := m.engine.MarkRevised(m.ctx, entry.Topic.ID)
	if err != nil {
		m.err = err
		return
	}

	if topic.IsLearned {
		m.setMessage(fmt.Sprintf("Learned %s", topic.Name), 3*time.Second)
	} else {
		m.setMessage(fmt.Sprintf("Revised %s, next %s", topic.Name,
			output.FormatDay(*topic.NextRevisionDate)), 3*time.Second)
	}
	m.loadData()
}

// setMessage sets a temporary message.
func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = time.Now().Add(duration)
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *DashboardModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, config DashboardConfig) error {
	p := tea.NewProgram(NewDashboardModel(ctx, config),
		tea.WithAltScreen(),
		tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
