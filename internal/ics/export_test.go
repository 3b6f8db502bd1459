package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"didacal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleEvents() []model.Event {
	return []model.Event{
		{
			Date: day(2025, 7, 1), Time: "730 AM", StartMinutes: 450,
			Subject: "Grand Rounds", Lecturer: "Dr. A", Setting: model.InPerson,
			Highlight: "#1A2B3C",
		},
		{
			Date: day(2025, 7, 1), StartMinutes: model.Unparsable,
			Subject: "Holiday",
		},
		{
			Date: day(2025, 7, 2), Time: "TBD", StartMinutes: model.Unparsable,
			Subject: "Journal Club", Lecturer: "Dr. B", Setting: model.Virtual,
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	loc := time.FixedZone("PDT", -7*3600)
	stamp := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	payload := Export(sampleEvents(), ExportConfig{
		Name:     "Didactics",
		Location: loc,
		Stamp:    stamp,
	})

	cal, err := ical.ParseCalendar(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("parse exported calendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("got %d VEVENTs, want 3", len(events))
	}

	timed := events[0]
	start, err := timed.GetStartAt()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if want := time.Date(2025, 7, 1, 7, 30, 0, 0, loc); !start.Equal(want) {
		t.Errorf("start = %s, want %s", start, want)
	}
	end, err := timed.GetEndAt()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := end.Sub(start); got != time.Hour {
		t.Errorf("duration = %s, want 1h", got)
	}
	if got := timed.GetProperty(ical.ComponentPropertySummary).Value; got != "Grand Rounds" {
		t.Errorf("summary = %q", got)
	}
	if got := timed.GetProperty(ical.ComponentPropertyLocation).Value; got != "In person" {
		t.Errorf("location = %q", got)
	}
	if got := timed.GetProperty(ical.ComponentPropertyColor).Value; got != "#1A2B3C" {
		t.Errorf("color = %q", got)
	}
	if events[2].GetProperty(ical.ComponentPropertyColor) != nil {
		t.Error("unhighlighted event carries a color")
	}

	for i, name := range []string{"holiday", "unparsable time"} {
		ev := events[i+1]
		prop := ev.GetProperty(ical.ComponentPropertyDtStart)
		if prop == nil {
			t.Fatalf("%s: missing DTSTART", name)
		}
		if vals := prop.ICalParameters["VALUE"]; len(vals) == 0 || vals[0] != "DATE" {
			t.Errorf("%s: DTSTART not all-day: %v", name, prop.ICalParameters)
		}
	}
	if ev := events[1]; ev.GetProperty(ical.ComponentPropertyLocation) != nil {
		t.Error("break row carries a location")
	}
	if got := events[2].GetProperty(ical.ComponentPropertyLocation).Value; got != "Virtual" {
		t.Errorf("virtual location = %q", got)
	}
}

func TestExportStableUIDs(t *testing.T) {
	cfg := ExportConfig{Location: time.UTC, Stamp: day(2025, 6, 30)}
	a := Export(sampleEvents(), cfg)
	b := Export(sampleEvents(), cfg)
	if !bytes.Equal(a, b) {
		t.Fatal("exporting the same events twice differs")
	}
}

func TestExportDuplicateRowsGetDistinctUIDs(t *testing.T) {
	ev := sampleEvents()[0]
	cal := BuildCalendar([]model.Event{ev, ev}, ExportConfig{Location: time.UTC})
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Id() == events[1].Id() {
		t.Fatalf("duplicate UID %q", events[0].Id())
	}
}
