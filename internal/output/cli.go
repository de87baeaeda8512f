package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
)

// Styles for CLI output.
var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleTopic   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	statusStyles = map[timetable.Status]lipgloss.Style{
		timetable.StatusLearned:  lipgloss.NewStyle().Foreground(colorSuccess),
		timetable.StatusOverdue:  lipgloss.NewStyle().Bold(true).Foreground(colorError),
		timetable.StatusDueToday: lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
		timetable.StatusUpcoming: lipgloss.NewStyle().Foreground(colorInfo),
	}
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) render(s lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return s.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// TopicName formats a topic name.
func (c *CLIFormatter) TopicName(name string) string {
	return c.render(styleTopic, name)
}

// Status formats a status label.
func (c *CLIFormatter) Status(s timetable.Status) string {
	return c.render(statusStyles[s], StatusLabel(s))
}

// StatusLabel returns the display label for a status.
func StatusLabel(s timetable.Status) string {
	switch s {
	case timetable.StatusLearned:
		return "learned"
	case timetable.StatusOverdue:
		return "overdue"
	case timetable.StatusDueToday:
		return "due today"
	default:
		return "upcoming"
	}
}

// NextLabel describes when a topic is next due.
func NextLabel(p timetable.Progress, today time.Time) string {
	if p.Learned {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", FormatDay(*p.NextDue), FormatRelative(p.DaysUntil(today)))
}

// PrintTopicCreated prints the result of adding a topic.
func (c *CLIFormatter) PrintTopicCreated(t *model.Topic, s *model.Strategy, p timetable.Progress, today time.Time) {
	c.Success(fmt.Sprintf("Added %s", c.TopicName(t.Name)))
	c.Printf("  Strategy: %s (%s)\n", s.Name, s.IntervalsText())
	c.Printf("  Revisions: %d\n", len(t.RevisionDates))
	if p.Learned {
		c.Printf("  Status: %s\n", c.Status(p.Status))
		return
	}
	c.Printf("  Next: %s\n", NextLabel(p, today))
}

// PrintRevised prints the result of marking a topic revised.
func (c *CLIFormatter) PrintRevised(t *model.Topic, p timetable.Progress, today time.Time) {
	if p.Learned {
		c.Success(fmt.Sprintf("%s is learned", c.TopicName(t.Name)))
		return
	}
	c.Success(fmt.Sprintf("Revised %s", c.TopicName(t.Name)))
	c.Printf("  Progress: %s %d/%d\n", ProgressBar(t.CompletedCount(), len(t.RevisionDates), 20),
		t.CompletedCount(), len(t.RevisionDates))
	c.Printf("  Next: %s\n", NextLabel(p, today))
}

// PrintTopic prints a topic in detail with its timetable.
func (c *CLIFormatter) PrintTopic(t *model.Topic, s *model.Strategy, p timetable.Progress, today time.Time) {
	c.Title(t.Name)
	c.Printf("  ID: %s\n", t.ID)
	if s != nil {
		c.Printf("  Strategy: %s (%s)\n", s.Name, s.IntervalsText())
	} else {
		c.Printf("  Strategy: %s (missing)\n", t.StrategyID)
	}
	c.Printf("  Created: %s\n", FormatDay(t.CreatedAt))
	if t.LastRevisedDate != nil {
		c.Printf("  Last revised: %s\n", FormatDay(*t.LastRevisedDate))
	}
	c.Printf("  Status: %s\n", c.Status(p.Status))
	if !p.Learned {
		c.Printf("  Next: %s\n", NextLabel(p, today))
	}

	if len(t.RevisionDates) == 0 {
		return
	}
	c.Println()
	for i, d := range t.RevisionDates {
		mark := "○"
		if t.LastRevisedDate != nil && !timetable.Midnight(d).After(timetable.Midnight(*t.LastRevisedDate)) {
			mark = c.render(styleSuccess, "●")
		} else if p.NextDue != nil && timetable.SameDay(d, *p.NextDue) {
			mark = c.render(styleWarning, "◐")
		}
		c.Printf("  %s %2d. %s\n", mark, i+1, FormatDay(d))
	}
}

// PrintTopics prints a topic table. progress supplies each topic's state.
func (c *CLIFormatter) PrintTopics(topics []*model.Topic, progress func(*model.Topic) timetable.Progress, today time.Time) {
	if len(topics) == 0 {
		c.Muted("No topics yet.")
		c.Muted("Use 'revise add <name>' to start one.")
		return
	}

	rows := make([]TableRow, 0, len(topics))
	for _, t := range topics {
		p := progress(t)
		rows = append(rows, TableRow{Columns: []string{
			t.ShortID(),
			t.Name,
			StatusLabel(p.Status),
			NextLabel(p, today),
			fmt.Sprintf("%d/%d", t.CompletedCount(), len(t.RevisionDates)),
		}})
	}
	c.PrintTable([]string{"ID", "TOPIC", "STATUS", "NEXT", "DONE"}, rows)
}

// PrintDue prints today's revisions followed by overdue topics.
func (c *CLIFormatter) PrintDue(day time.Time, due []*model.RevisionInstance, overdue []*model.Topic, today time.Time) {
	if len(due) == 0 && len(overdue) == 0 {
		c.Muted(fmt.Sprintf("Nothing due on %s.", FormatDayLong(day)))
		return
	}

	if len(due) > 0 {
		c.Title(fmt.Sprintf("Due %s", FormatDayLong(day)))
		for _, r := range due {
			c.Printf("  • %s\n", c.TopicName(r.TopicName))
		}
	}
	if len(overdue) > 0 {
		if len(due) > 0 {
			c.Println()
		}
		c.Println(c.render(styleError, "Overdue"))
		for _, t := range overdue {
			days := timetable.DaysBetween(*t.NextRevisionDate, today)
			c.Printf("  • %s %s\n", c.TopicName(t.Name), c.render(styleMuted, fmt.Sprintf("(since %s, %s)",
				FormatDay(*t.NextRevisionDate), FormatRelative(-days))))
		}
	}
}

// PrintCalendar prints instances grouped by day.
func (c *CLIFormatter) PrintCalendar(instances []*model.RevisionInstance) {
	if len(instances) == 0 {
		c.Muted("No revisions in this range.")
		return
	}
	var current string
	for _, r := range instances {
		if r.ScheduledDate != current {
			if current != "" {
				c.Println()
			}
			current = r.ScheduledDate
			heading := current
			if d, err := r.Day(); err == nil {
				heading = FormatDayLong(d)
			}
			c.Println(c.render(styleBold, heading))
		}
		mark := "○"
		if r.IsCompleted {
			mark = c.render(styleSuccess, "●")
		}
		c.Printf("  %s %s\n", mark, r.TopicName)
	}
}

// PrintStrategies prints the strategy table.
func (c *CLIFormatter) PrintStrategies(strategies []*model.Strategy) {
	if len(strategies) == 0 {
		c.Muted("No strategies.")
		return
	}
	rows := make([]TableRow, 0, len(strategies))
	for _, s := range strategies {
		rows = append(rows, TableRow{Columns: []string{s.ShortID(), s.Name, s.IntervalsText()}})
	}
	c.PrintTable([]string{"ID", "NAME", "INTERVALS"}, rows)
}

// PrintWebhooks prints the webhook table. Targets are masked.
func (c *CLIFormatter) PrintWebhooks(webhooks []*model.Webhook) {
	if len(webhooks) == 0 {
		c.Muted("No webhooks configured.")
		c.Muted("Use 'revise webhook add <name> <url>' to add one.")
		return
	}
	now := time.Now()
	rows := make([]TableRow, 0, len(webhooks))
	for _, w := range webhooks {
		state := "enabled"
		if !w.Enabled {
			state = "disabled"
		}
		used := "never"
		if !w.LastUsed.IsZero() {
			used = FormatAgo(w.LastUsed, now)
		}
		if w.LastError != "" {
			used += " (failed)"
		}
		rows = append(rows, TableRow{Columns: []string{w.Name, w.Type, w.MaskedURL(), state, used}})
	}
	c.PrintTable([]string{"NAME", "TYPE", "TARGET", "STATE", "LAST USED"}, rows)
}

// ProgressBar renders done out of total as a bar of width cells.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	if done > total {
		done = total
	}
	if done < 0 {
		done = 0
	}
	filled := width * done / total
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// TableRow is one row of a CLI table.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && lipgloss.Width(col) > widths[i] {
				widths[i] = lipgloss.Width(col)
			}
		}
	}

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
	}
	c.Println(strings.TrimRight(c.render(styleBold, header.String()), " "))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				line.WriteString(pad(col, widths[i]))
			}
		}
		c.Println(strings.TrimRight(line.String(), " "))
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-lipgloss.Width(s)+2)
}
