// Package build runs the calendar pipeline: load the workbook, keep the
// current window, render the page and write the requested outputs.
package build

import (
	"context"
	"fmt"
	"time"

	"didacal/internal/capture"
	"didacal/internal/config"
	"didacal/internal/ics"
	appLog "didacal/internal/log"
	"didacal/internal/model"
	"didacal/internal/render"
	"didacal/internal/source"
	"didacal/internal/window"
	"didacal/internal/workbook"
)

// Options describes one pipeline run.
type Options struct {
	// Input is the workbook path or http(s) URL; Sheet optionally names the
	// sheet to read.
	Input string
	Sheet string

	// CacheDir is where remote workbooks are downloaded to.
	CacheDir string

	// Today anchors the window. Only its calendar date is used.
	Today time.Time

	// Location places event times in the iCalendar export.
	Location *time.Location

	Page          render.Page
	CalendarName  string
	EventDuration time.Duration

	// Generated is the DTSTAMP of exported events.
	Generated time.Time
}

// Result is the in-memory outcome of a run.
type Result struct {
	Window window.Window
	Events []model.Event
	HTML   []byte
	ICS    []byte
}

// OptionsFromConfig fills Options from cfg for the given input and day.
func OptionsFromConfig(cfg *config.Config, input string, today time.Time) Options {
	return Options{
		Input:    input,
		Sheet:    cfg.Sheet,
		CacheDir: cfg.CacheDir,
		Today:    today,
		Location: cfg.Location(),
		Page: render.Page{
			Title:   cfg.Page.Title,
			Heading: cfg.Page.Heading,
			Notice:  cfg.Page.Notice,
			LogoURL: cfg.Page.LogoURL,
			LogoAlt: cfg.Page.LogoAlt,
			HomeURL: cfg.Page.HomeURL,
		},
		CalendarName:  cfg.Page.Heading,
		EventDuration: cfg.EventDuration(),
		Generated:     time.Now(),
	}
}

// Generate loads, filters, sorts and renders. It returns
// window.ErrEmptyWindow, unwrapped, when nothing falls inside the window.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	path, err := source.NewFetcher(opts.CacheDir).Resolve(ctx, opts.Input)
	if err != nil {
		return nil, err
	}
	events, err := workbook.LoadFile(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	return GenerateEvents(events, opts)
}

// GenerateEvents runs the filter and render stages over loaded events.
func GenerateEvents(events []model.Event, opts Options) (*Result, error) {
	kept, w, err := window.Apply(events, opts.Today)
	if err != nil {
		appLog.Info("window is empty",
			"window_start", w.Start.Format(time.DateOnly),
			"window_end", w.End.Format(time.DateOnly),
			"loaded", len(events),
		)
		return nil, err
	}

	html, err := render.Bytes(opts.Page, kept)
	if err != nil {
		return nil, err
	}

	payload := ics.Export(kept, ics.ExportConfig{
		Name:          opts.CalendarName,
		Location:      opts.Location,
		EventDuration: opts.EventDuration,
		Stamp:         opts.Generated,
	})

	appLog.Info("calendar generated",
		"window_start", w.Start.Format(time.DateOnly),
		"window_end", w.End.Format(time.DateOnly),
		"events", len(kept),
		"days", len(render.GroupByDay(kept)),
	)

	return &Result{
		Window: w,
		Events: kept,
		HTML:   html,
		ICS:    payload,
	}, nil
}

// Outputs lists where a Result should be written. Empty paths are skipped,
// except HTML which is required.
type Outputs struct {
	HTML       string
	ICS        string
	PreviewPNG string
}

// Write stores the result. The PNG preview is taken from the written HTML
// file, so it runs last.
func (r *Result) Write(ctx context.Context, out Outputs) error {
	if out.HTML == "" {
		return fmt.Errorf("build: output path is empty")
	}
	if err := config.WriteFileAtomic(out.HTML, r.HTML, 0o644); err != nil {
		return fmt.Errorf("build: write %s: %w", out.HTML, err)
	}
	appLog.Info("html written", "path", out.HTML, "bytes", len(r.HTML))

	if out.ICS != "" {
		if err := config.WriteFileAtomic(out.ICS, r.ICS, 0o644); err != nil {
			return fmt.Errorf("build: write %s: %w", out.ICS, err)
		}
		appLog.Info("ics written", "path", out.ICS, "events", len(r.Events))
	}

	if out.PreviewPNG != "" {
		err := capture.CapturePNG(ctx, capture.Options{
			HTMLPath:   out.HTML,
			OutputPath: out.PreviewPNG,
		})
		if err != nil {
			return err
		}
		appLog.Info("preview written", "path", out.PreviewPNG)
	}
	return nil
}
