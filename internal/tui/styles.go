// Package tui provides the interactive revision dashboard.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/revise/internal/timetable"
)

// Color palette for the dashboard.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorActive    = lipgloss.Color("#3B82F6") // Blue
	ColorBorder    = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles.
var (
	// StyleTitle is used for section titles.
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// StyleSubtitle is used for secondary information.
	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleTopic is used for topic names.
	StyleTopic = lipgloss.NewStyle().
			Bold(true)

	// StyleSelected marks the row under the cursor.
	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleCount = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// StyleHelp is used for the help bar at the bottom.
	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Box styles for the dashboard sections.
var (
	StyleSummaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginBottom(1)

	// StyleDueBox frames the list of topics due now.
	StyleDueBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorWarning).
			Padding(1, 2).
			MarginBottom(1)

	// StyleClearBox frames the due list once nothing is left.
	StyleClearBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(1, 2).
			MarginBottom(1)

	StyleUpcomingBox = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(1, 2).
				MarginBottom(1)
)

var statusStyles = map[timetable.Status]lipgloss.Style{
	timetable.StatusOverdue:  StyleError,
	timetable.StatusDueToday: StyleWarning,
	timetable.StatusUpcoming: StyleSubtitle,
	timetable.StatusLearned:  StyleSuccess,
}

// ProgressBar renders percentage as a bar of width cells.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var bar []byte
	for i := 0; i < filled; i++ {
		bar = append(bar, filledStyle.Render("█")...)
	}
	for i := 0; i < empty; i++ {
		bar = append(bar, emptyStyle.Render("░")...)
	}
	return string(bar)
}
