package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "didacal/internal/log"
	"didacal/internal/workbook/workbooktest"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func writeSchedule(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "schedule.xlsx")
	workbooktest.Write(t, path,
		workbooktest.Sheet{Name: "2025-2026", Rows: [][]any{
			{"Date", "Time", "Topic", "Lecturer", "Setting"},
			{day(2025, 7, 18), "8", "Grand Rounds", "Dr. A", "Virtual"},
			{day(2025, 7, 4), nil, "Independence Day"},
		}},
		workbooktest.Sheet{Name: "Archive", Rows: [][]any{
			{"Date", "Time", "Topic", "Lecturer", "Setting"},
			{day(2025, 7, 11), "9", "Archived Lecture", "Dr. Z", "In Person"},
		}},
	)
	return path
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunWritesHTML(t *testing.T) {
	dir := t.TempDir()
	input := writeSchedule(t, dir)
	output := filepath.Join(dir, "calendar.html")

	code, stdout, stderr := runCLI("--today", "2025-07-15", input, output)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if stdout != "✓ Wrote "+output+"\n" {
		t.Fatalf("stdout = %q", stdout)
	}

	html, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, s := range []string{"Friday, July 4 2025", "Grand Rounds", "VIRTUAL"} {
		if !strings.Contains(string(html), s) {
			t.Errorf("output missing %q", s)
		}
	}
}

func TestRunDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeSchedule(t, dir)
	t.Chdir(dir)

	code, stdout, stderr := runCLI("--today", "2025-07-15", input)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "didactics_calendar.html") {
		t.Fatalf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "didactics_calendar.html")); err != nil {
		t.Fatalf("default output not written: %v", err)
	}
}

func TestRunSheetAndICS(t *testing.T) {
	dir := t.TempDir()
	input := writeSchedule(t, dir)
	output := filepath.Join(dir, "calendar.html")
	icsPath := filepath.Join(dir, "calendar.ics")

	code, stdout, stderr := runCLI("--today", "2025-07-15", "--sheet", "Archive", "--ics", icsPath, input, output)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "✓ Wrote "+icsPath) {
		t.Fatalf("stdout = %q", stdout)
	}

	html, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "Archived Lecture") || strings.Contains(string(html), "Grand Rounds") {
		t.Fatal("output does not reflect the selected sheet")
	}

	f, err := os.Open(icsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cal, err := ical.ParseCalendar(f)
	if err != nil {
		t.Fatalf("parse ics: %v", err)
	}
	if n := len(cal.Events()); n != 1 {
		t.Fatalf("ics events = %d, want 1", n)
	}
}

func TestRunEmptyWindow(t *testing.T) {
	dir := t.TempDir()
	input := writeSchedule(t, dir)
	output := filepath.Join(dir, "calendar.html")

	code, stdout, stderr := runCLI("--today", "2026-03-02", input, output)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if strings.TrimSpace(stderr) != "No events found in this 1-month window." {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("output written for empty window (stat err %v)", err)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeSchedule(t, dir)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "accepts between 1 and 2 arg(s)"},
		{"too many args", []string{"a", "b", "c"}, "accepts between 1 and 2 arg(s)"},
		{"missing input", []string{filepath.Join(dir, "missing.xlsx"), filepath.Join(dir, "out.html")}, "Error:"},
		{"bad today", []string{"--today", "07/15/2025", input}, "invalid --today"},
		{"unknown sheet", []string{"--today", "2025-07-15", "--sheet", "Nope", input, filepath.Join(dir, "out.html")}, "Error:"},
	}
	for _, tt := range tests {
		code, _, stderr := runCLI(tt.args...)
		if code != 1 {
			t.Errorf("%s: exit = %d, want 1", tt.name, code)
		}
		if !strings.Contains(stderr, tt.want) {
			t.Errorf("%s: stderr = %q, want %q", tt.name, stderr, tt.want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "out.html")); !os.IsNotExist(err) {
		t.Fatal("output written despite errors")
	}
}

func TestResolveToday(t *testing.T) {
	got, err := resolveToday(&flagConfig{today: "2025-01-31"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(day(2025, 1, 31)) {
		t.Fatalf("today = %s", got)
	}
}
