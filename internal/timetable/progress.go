package timetable

import "time"

// Status classifies a topic relative to today.
type Status string

// Topic statuses.
const (
	StatusLearned  Status = "learned"
	StatusOverdue  Status = "overdue"
	StatusDueToday Status = "due_today"
	StatusUpcoming Status = "upcoming"
)

// Progress is the derived state of a topic.
type Progress struct {
	NextDue *time.Time
	Learned bool
	Status  Status
}

// DaysUntil returns the calendar days from today to NextDue, negative when
// overdue. It returns 0 for a learned topic.
func (p Progress) DaysUntil(today time.Time) int {
	if p.NextDue == nil {
		return 0
	}
	return DaysBetween(today, *p.NextDue)
}

// DeriveProgress picks the next due date when a topic is scheduled or
// rescheduled.
//
// An entry is consumed once lastRevised is on or after it. The next due date
// is the earliest unconsumed entry on or after today. When every unconsumed
// entry already lies in the past the latest of them stays due, so the topic
// is overdue rather than learned. A topic is learned when every entry is
// consumed, which includes an empty timetable.
func DeriveProgress(timetable []time.Time, lastRevised *time.Time, today time.Time) Progress {
	today = Midnight(today)

	var next, missed *time.Time
	for _, d := range timetable {
		d = Midnight(d)
		if lastRevised != nil && !d.After(Midnight(*lastRevised)) {
			continue
		}
		if d.Before(today) {
			if missed == nil || d.After(*missed) {
				m := d
				missed = &m
			}
			continue
		}
		if next == nil || d.Before(*next) {
			due := d
			next = &due
		}
	}

	if next == nil {
		next = missed
	}
	return Evaluate(next, today)
}

// Evaluate classifies a stored next due date against today. A nil date
// means the topic is learned. The date is never advanced past missed
// occurrences; only a new revision moves it.
func Evaluate(next *time.Time, today time.Time) Progress {
	if next == nil {
		return Progress{Learned: true, Status: StatusLearned}
	}

	due := Midnight(*next)
	today = Midnight(today)
	p := Progress{NextDue: &due}
	switch {
	case due.Before(today):
		p.Status = StatusOverdue
	case due.Equal(today):
		p.Status = StatusDueToday
	default:
		p.Status = StatusUpcoming
	}
	return p
}

// Remaining returns the unconsumed entries in timetable order.
func Remaining(timetable []time.Time, lastRevised *time.Time) []time.Time {
	out := make([]time.Time, 0, len(timetable))
	for _, d := range timetable {
		if lastRevised != nil && !Midnight(d).After(Midnight(*lastRevised)) {
			continue
		}
		out = append(out, Midnight(d))
	}
	return out
}
