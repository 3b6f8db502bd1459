package model

import (
	"math"
	"time"
)

// Unparsable is the StartMinutes value of events whose start time could not
// be derived. It orders after every real minute offset.
const Unparsable = math.MaxInt

// Setting is the delivery category of a schedule row.
type Setting int

const (
	InPerson Setting = iota
	Virtual
)

// String returns the CSS class used for the setting badge.
func (s Setting) String() string {
	if s == Virtual {
		return "virtual"
	}
	return "in-person"
}

// Label is the badge text shown next to a date header.
func (s Setting) Label() string {
	if s == Virtual {
		return "VIRTUAL"
	}
	return "IN PERSON"
}

// Event is one normalized schedule row. Events are created once by the
// loader and only filtered and reordered afterwards.
type Event struct {
	// Date is the calendar day at midnight UTC.
	Date time.Time

	// Time is the display form of the time cell, possibly empty.
	Time string
	// StartMinutes is minutes after midnight, or Unparsable. Used only
	// for ordering.
	StartMinutes int

	Subject  string
	Lecturer string

	// SettingText is the trimmed setting cell; Setting is its category.
	SettingText string
	Setting     Setting

	// Highlight is a "#RRGGBB" colour from the subject cell fill, or "".
	Highlight string
}

// IsBreak reports whether the event is a holiday/break row, i.e. it has no
// lecturer.
func (e Event) IsBreak() bool {
	return e.Lecturer == ""
}

// HasStart reports whether StartMinutes carries a real time of day.
func (e Event) HasStart() bool {
	return e.StartMinutes != Unparsable
}

// DateOf truncates t to its calendar day (in t's own location) and returns
// that day at midnight UTC, the canonical form of Event.Date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
