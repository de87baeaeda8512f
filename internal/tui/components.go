package tui

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/timetable"
)

// Entry is a topic with its progress as of the dashboard's today.
type Entry struct {
	Topic     *model.Topic
	Progress  timetable.Progress
	DaysUntil int
}

// Label describes when the entry is due.
func (e Entry) Label() string {
	if e.Progress.Learned {
		return output.StatusLabel(timetable.StatusLearned)
	}
	return output.FormatRelative(e.DaysUntil)
}

func renderLabel(e Entry) string {
	return statusStyles[e.Progress.Status].Render(e.Label())
}

// SummaryComponent shows topic counts and overall progress.
type SummaryComponent struct {
	Total   int
	Learned int
	Due     int
	Overdue int
	Width   int
}

// View renders the summary.
func (sc *SummaryComponent) View() string {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("%s topics  %s due  %s overdue  %s learned",
		StyleCount.Render(fmt.Sprint(sc.Total)),
		StyleWarning.Render(fmt.Sprint(sc.Due)),
		StyleError.Render(fmt.Sprint(sc.Overdue)),
		StyleSuccess.Render(fmt.Sprint(sc.Learned))))

	if sc.Total > 0 {
		pct := float64(sc.Learned) * 100 / float64(sc.Total)
		barWidth := sc.Width - 16
		if barWidth < 10 {
			barWidth = 10
		}
		content.WriteString("\n\n")
		content.WriteString(ProgressBar(pct, barWidth))
		content.WriteString(StyleSubtitle.Render(fmt.Sprintf(" %.0f%%", pct)))
	}

	return StyleSummaryBox.Width(boxWidth(sc.Width)).Render(content.String())
}

// DueListComponent lists topics that need revising now, with a cursor.
type DueListComponent struct {
	Entries []Entry
	Cursor  int
	Width   int
}

// View renders the due list.
func (dc *DueListComponent) View() string {
	var content strings.Builder
	content.WriteString(StyleTitle.Render("Due now"))
	content.WriteString("\n")

	if len(dc.Entries) == 0 {
		content.WriteString(StyleSuccess.Render("All caught up"))
		return StyleClearBox.Width(boxWidth(dc.Width)).Render(content.String())
	}

	for i, e := range dc.Entries {
		if i > 0 {
			content.WriteString("\n")
		}
		marker, name := "  ", StyleTopic.Render(e.Topic.Name)
		if i == dc.Cursor {
			marker, name = StyleSelected.Render("> "), StyleSelected.Render(e.Topic.Name)
		}
		content.WriteString(marker + name + "  " + renderLabel(e))
	}
	return StyleDueBox.Width(boxWidth(dc.Width)).Render(content.String())
}

// UpcomingComponent lists the next topics coming due.
type UpcomingComponent struct {
	Entries []Entry
	Width   int
	Limit   int
}

// View renders the upcoming list.
func (uc *UpcomingComponent) View() string {
	var content strings.Builder
	content.WriteString(StyleTitle.Render("Upcoming"))
	content.WriteString("\n")

	entries := uc.Entries
	if uc.Limit > 0 && len(entries) > uc.Limit {
		entries = entries[:uc.Limit]
	}
	if len(entries) == 0 {
		content.WriteString(StyleSubtitle.Render("Nothing scheduled"))
	}
	for i, e := range entries {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(fmt.Sprintf("%s  %s  %s",
			StyleSubtitle.Render(output.FormatDayLong(*e.Progress.NextDue)),
			e.Topic.Name,
			renderLabel(e)))
	}
	if more := len(uc.Entries) - len(entries); more > 0 {
		content.WriteString("\n")
		content.WriteString(StyleSubtitle.Render(fmt.Sprintf("and %d more", more)))
	}
	return StyleUpcomingBox.Width(boxWidth(uc.Width)).Render(content.String())
}

// HelpBar renders the key bindings.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "move"},
		{"enter", "mark revised"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}
	return StyleHelp.Render(strings.Join(parts, "  •  "))
}

func boxWidth(width int) int {
	if width < 24 {
		return 20
	}
	return width - 4
}
