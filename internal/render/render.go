// Package render groups sorted events by day and writes the calendar page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"didacal/internal/model"
)

// HeaderLayout formats date headers, e.g. "Tuesday, July 1 2025".
const HeaderLayout = "Monday, January 2 2006"

// Page holds the fixed text around the schedule.
type Page struct {
	Title   string
	Heading string
	Notice  string
	LogoURL string
	LogoAlt string
	HomeURL string
}

// Day is one contiguous block of events sharing a date.
type Day struct {
	Date   time.Time
	Events []model.Event

	// HasLecturer is true when any event of the day names a lecturer; only
	// then is a badge shown.
	HasLecturer bool
	// Setting is taken from the first event of the day.
	Setting model.Setting
}

// Header is the day's heading text.
func (d Day) Header() string {
	return d.Date.Format(HeaderLayout)
}

//go:embed templates/page.html.tmpl
var templateFS embed.FS

var pageTmpl = template.Must(template.New("page.html.tmpl").Funcs(template.FuncMap{
	"background": func(color string) template.CSS {
		// color comes from normalize.HighlightColor and is always #RRGGBB.
		return template.CSS("background:" + color + ";")
	},
}).ParseFS(templateFS, "templates/page.html.tmpl"))

// GroupByDay splits events into runs of equal dates, keeping their order.
// The input is expected to be sorted already; it is not re-sorted.
func GroupByDay(events []model.Event) []Day {
	var days []Day
	for _, ev := range events {
		if n := len(days); n > 0 && days[n-1].Date.Equal(ev.Date) {
			days[n-1].Events = append(days[n-1].Events, ev)
			continue
		}
		days = append(days, Day{Date: ev.Date, Events: []model.Event{ev}})
	}

	for i := range days {
		d := &days[i]
		d.Setting = d.Events[0].Setting
		for _, ev := range d.Events {
			if !ev.IsBreak() {
				d.HasLecturer = true
				break
			}
		}
	}
	return days
}

// Render writes the full HTML document for events to w.
func Render(w io.Writer, page Page, events []model.Event) error {
	data := struct {
		Page Page
		Days []Day
	}{
		Page: page,
		Days: GroupByDay(events),
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Bytes renders events into a new byte slice.
func Bytes(page Page, events []model.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, page, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
