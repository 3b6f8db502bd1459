package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "didacal/internal/log"
	"didacal/internal/model"
)

const defaultEventDuration = time.Hour

// uidNamespace seeds the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("didacal"))

// ExportConfig controls how events are turned into VEVENTs.
type ExportConfig struct {
	// Name is published as the calendar name (NAME / X-WR-CALNAME).
	Name string

	// Location is the zone the schedule's times of day are in. If nil,
	// time.Local is used.
	Location *time.Location

	// EventDuration is the length of timed events. If zero,
	// defaultEventDuration is used.
	EventDuration time.Duration

	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// BuildCalendar converts events into an iCalendar document.
//
//   - Events with a parsable start become timed events lasting
//     EventDuration.
//   - Break rows and events without a start time become all-day events.
//   - UIDs are derived from the event content, so exporting the same
//     schedule twice yields the same UIDs.
func BuildCalendar(events []model.Event, cfg ExportConfig) *ical.Calendar {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.EventDuration <= 0 {
		cfg.EventDuration = defaultEventDuration
	}

	cal := ical.NewCalendarFor("didacal")
	cal.SetMethod(ical.MethodPublish)
	if cfg.Name != "" {
		cal.SetName(cfg.Name)
		cal.SetXWRCalName(cfg.Name)
	}
	cal.SetXWRTimezone(cfg.Location.String())

	seen := make(map[string]int)
	for _, ev := range events {
		key := eventKey(ev)
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}

		vev := cal.AddEvent(EventUID(key))
		vev.SetDtStampTime(cfg.Stamp)
		vev.SetSummary(ev.Subject)

		if ev.IsBreak() || !ev.HasStart() {
			vev.SetAllDayStartAt(ev.Date)
			vev.SetAllDayEndAt(ev.Date.AddDate(0, 0, 1))
		} else {
			start := time.Date(ev.Date.Year(), ev.Date.Month(), ev.Date.Day(),
				0, ev.StartMinutes, 0, 0, cfg.Location)
			vev.SetStartAt(start)
			vev.SetEndAt(start.Add(cfg.EventDuration))
		}

		if desc := description(ev); desc != "" {
			vev.SetDescription(desc)
		}
		if !ev.IsBreak() {
			vev.SetLocation(settingName(ev.Setting))
		}
		if ev.Highlight != "" {
			vev.SetColor(ev.Highlight)
		}
	}

	appLog.Debug("ics calendar built", "events", len(events))
	return cal
}

// Export serializes events as an iCalendar payload.
func Export(events []model.Event, cfg ExportConfig) []byte {
	return []byte(BuildCalendar(events, cfg).Serialize())
}

// EventUID returns the stable UID for an event key.
func EventUID(key string) string {
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@didacal"
}

func eventKey(ev model.Event) string {
	return strings.Join([]string{
		ev.Date.Format(time.DateOnly),
		ev.Time,
		ev.Subject,
		ev.Lecturer,
	}, "|")
}

func description(ev model.Event) string {
	var parts []string
	if ev.Lecturer != "" {
		parts = append(parts, "Lecturer: "+ev.Lecturer)
	}
	if ev.Time != "" {
		parts = append(parts, "Time: "+ev.Time)
	}
	return strings.Join(parts, "\n")
}

func settingName(s model.Setting) string {
	if s == model.Virtual {
		return "Virtual"
	}
	return "In person"
}
