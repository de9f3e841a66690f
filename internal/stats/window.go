package stats

import (
	"time"

	"fitflow/internal/domain"
)

// Window is a half-open range of local days [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Today is the window holding only the local day of now.
func Today(now time.Time) Window {
	start := dayStart(now)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ThisWeek runs from the most recent Sunday up to and including today.
func ThisWeek(now time.Time) Window {
	start := weekStart(now)
	return Window{Start: start, End: dayStart(now).AddDate(0, 0, 1)}
}

// LastWeek is the full Sunday-to-Saturday week before ThisWeek.
func LastWeek(now time.Time) Window {
	end := weekStart(now)
	return Window{Start: end.AddDate(0, 0, -7), End: end}
}

// LastDays is the n days ending with today.
func LastDays(now time.Time, n int) Window {
	end := dayStart(now).AddDate(0, 0, 1)
	return Window{Start: end.AddDate(0, 0, -n), End: end}
}

// Contains reports whether the entry date day falls inside w.
func (w Window) Contains(day string) bool {
	t, err := domain.ParseDay(day)
	if err != nil {
		return false
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Filter returns the entries whose day falls inside w, preserving order.
func Filter[E domain.Entry](w Window, entries []E) []E {
	out := make([]E, 0, len(entries))
	for _, e := range entries {
		if w.Contains(e.EntryDay()) {
			out = append(out, e)
		}
	}
	return out
}

// Days lists every day of w in order.
func (w Window) Days() []string {
	var days []string
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.DayString(d))
	}
	return days
}

func weekStart(now time.Time) time.Time {
	today := dayStart(now)
	return today.AddDate(0, 0, -int(today.Weekday()))
}
