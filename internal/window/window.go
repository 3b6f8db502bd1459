// Package window selects the events shown on the page: everything from the
// first of the current month through the same day next month.
package window

import (
	"errors"
	"slices"
	"time"

	"didacal/internal/model"
)

// ErrEmptyWindow is returned when no event falls inside the window.
var ErrEmptyWindow = errors.New("no events found in this 1-month window")

// EmptyMessage is shown to users in place of an empty calendar.
const EmptyMessage = "No events found in this 1-month window."

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// For computes the window for the given day. Only the calendar date of
// today is used.
func For(today time.Time) Window {
	today = model.DateOf(today)
	return Window{
		Start: today.AddDate(0, 0, 1-today.Day()),
		End:   NextMonthSameDay(today),
	}
}

// NextMonthSameDay returns the same day-of-month in the following month,
// clamped to that month's last day (Jan 31 -> Feb 28/29).
func NextMonthSameDay(d time.Time) time.Time {
	d = model.DateOf(d)
	firstOfNext := time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	last := firstOfNext.AddDate(0, 1, -1).Day()
	day := min(d.Day(), last)
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether day lies within the window, both ends included.
func (w Window) Contains(day time.Time) bool {
	day = model.DateOf(day)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Filter returns the events inside w, in their original order. The input
// slice is not modified.
func Filter(events []model.Event, w Window) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev.Date) {
			out = append(out, ev)
		}
	}
	return out
}

// Sort orders events by date, then start minute. The sort is stable so rows
// with equal keys keep their workbook order, which fixes the per-day badge.
func Sort(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		switch {
		case a.StartMinutes < b.StartMinutes:
			return -1
		case a.StartMinutes > b.StartMinutes:
			return 1
		}
		return 0
	})
}

// Apply filters events to the window around today and sorts the result.
// It returns ErrEmptyWindow when nothing remains.
func Apply(events []model.Event, today time.Time) ([]model.Event, Window, error) {
	w := For(today)
	kept := Filter(events, w)
	if len(kept) == 0 {
		return nil, w, ErrEmptyWindow
	}
	Sort(kept)
	return kept, w, nil
}
