package workbook

import (
	"strings"
	"time"

	appLog "didacal/internal/log"
	"didacal/internal/model"
	"didacal/internal/normalize"
)

// LoadEvents converts rows into events, one per row whose date cell holds a
// calendar date. Other rows (headers, spacers, notes) are skipped silently.
func LoadEvents(rows []Row) []model.Event {
	events := make([]model.Event, 0, len(rows))
	skipped := 0

	for i, row := range rows {
		ev, ok := eventFromRow(row)
		if !ok {
			skipped++
			appLog.Debug("row skipped: no date", "row", i+1)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("rows loaded", "events", len(events), "skipped", skipped)
	return events
}

func eventFromRow(row Row) (model.Event, bool) {
	cells := make([]Cell, NumColumns)
	copy(cells, row)

	date, ok := cells[ColDate].Value.(DateTime)
	if !ok {
		return model.Event{}, false
	}

	display := normalize.FormatTime(TimeValueOf(cells[ColTime].Value))
	setting := cellText(cells[ColSetting].Value)
	highlight, _ := normalize.HighlightColor(cells[ColSubject].Fill)

	return model.Event{
		Date:         model.DateOf(time.Time(date)),
		Time:         display,
		StartMinutes: normalize.StartMinutes(display),
		Subject:      cellText(cells[ColSubject].Value),
		Lecturer:     cellText(cells[ColLecturer].Value),
		SettingText:  setting,
		Setting:      normalize.ClassifySetting(setting),
		Highlight:    highlight,
	}, true
}

// TimeValueOf maps a time cell onto the normalizer's representations.
func TimeValueOf(v Value) normalize.TimeValue {
	switch t := v.(type) {
	case nil:
		return nil
	case Text:
		if strings.TrimSpace(string(t)) == "" {
			return nil
		}
		return normalize.Text(t)
	case DateTime:
		tm := time.Time(t)
		return normalize.DateLike{Month: int(tm.Month()), Day: tm.Day()}
	case Number:
		if t >= 0 && t < 1 {
			return normalize.FractionalDay(t)
		}
		return normalize.Other(t.String())
	default:
		return normalize.Other(v.String())
	}
}

func cellText(v Value) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.String())
}
