package workbook

import (
	"testing"
	"time"

	"didacal/internal/model"
	"didacal/internal/normalize"
)

func date(y int, m time.Month, d int) DateTime {
	return DateTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestLoadEvents(t *testing.T) {
	rows := []Row{
		{{Value: Text("Date")}, {Value: Text("Time")}, {Value: Text("Topic")}, {Value: Text("Lecturer")}, {Value: Text("Setting")}},
		{},
		{
			{Value: date(2025, 7, 1)},
			{Value: Text("730")},
			{Value: Text("  Grand Rounds "), Fill: "FF1A2B3C"},
			{Value: Text(" Dr. A ")},
			{Value: Text("In Person")},
		},
		{
			{Value: DateTime(time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC))},
			{},
			{Value: Text("Holiday"), Fill: "FFFFFFFF"},
		},
		{{Value: Text("7/2/2025")}, {Value: Text("8")}, {Value: Text("typed as text")}},
		{
			{Value: date(2025, 7, 3)},
			{Value: Number(0.75)},
			{Value: Number(101)},
			{Value: Text("Dr. B")},
			{Value: Text("virtual")},
		},
	}

	events := LoadEvents(rows)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	first := events[0]
	want := model.Event{
		Date:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Time:         "730 AM",
		StartMinutes: 450,
		Subject:      "Grand Rounds",
		Lecturer:     "Dr. A",
		SettingText:  "In Person",
		Setting:      model.InPerson,
		Highlight:    "#1A2B3C",
	}
	if first != want {
		t.Fatalf("first event = %+v, want %+v", first, want)
	}

	holiday := events[1]
	if !holiday.Date.Equal(want.Date) {
		t.Errorf("date-time not truncated to day: %s", holiday.Date)
	}
	if holiday.Time != "" || holiday.StartMinutes != model.Unparsable {
		t.Errorf("holiday time = %q/%d, want empty/unparsable", holiday.Time, holiday.StartMinutes)
	}
	if !holiday.IsBreak() || holiday.Highlight != "" {
		t.Errorf("holiday = %+v, want break row without highlight", holiday)
	}

	third := events[2]
	if third.Time != "6:00 PM" || third.StartMinutes != 1080 {
		t.Errorf("serial time = %q/%d, want 6:00 PM/1080", third.Time, third.StartMinutes)
	}
	if third.Subject != "101" {
		t.Errorf("numeric subject = %q, want 101", third.Subject)
	}
	if third.Setting != model.Virtual {
		t.Errorf("setting = %v, want virtual", third.Setting)
	}
}

func TestTimeValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want normalize.TimeValue
	}{
		{"empty", nil, nil},
		{"blank text", Text("  "), nil},
		{"text", Text("8-9"), normalize.Text("8-9")},
		{"date", date(2025, 8, 9), normalize.DateLike{Month: 8, Day: 9}},
		{"fraction", Number(0.5), normalize.FractionalDay(0.5)},
		{"whole number", Number(2), normalize.Other("2")},
		{"bool", Bool(true), normalize.Other("TRUE")},
	}
	for _, tt := range tests {
		if got := TimeValueOf(tt.in); got != tt.want {
			t.Errorf("%s: TimeValueOf(%#v) = %#v, want %#v", tt.name, tt.in, got, tt.want)
		}
	}
}
