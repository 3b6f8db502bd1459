// Package workbook reads schedule rows from an xlsx workbook and turns them
// into events.
package workbook

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	appLog "didacal/internal/log"
	"didacal/internal/model"
)

// Built-in number formats that carry a date component. Time-only formats
// (18-21, 45-47) are left out so fractions stay serial times.
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true,
	34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true,
	55: true, 56: true, 57: true, 58: true,
}

// LoadFile reads the schedule sheet of the workbook at path and returns its
// events. sheet selects a sheet by name; empty means the first sheet.
func LoadFile(path, sheet string) ([]model.Event, error) {
	rows, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	events := LoadEvents(rows)
	appLog.Info("workbook loaded", "path", path, "rows", len(rows), "events", len(events))
	return events, nil
}

// ReadFile opens an xlsx workbook and reads the schedule columns of one
// sheet.
func ReadFile(path, sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()

	return ReadSheet(f, sheet)
}

// ReadSheet reads the first NumColumns cells of every row of sheet (the
// first sheet when empty), keeping row positions: blank rows become rows of
// empty cells.
func ReadSheet(f *excelize.File, sheet string) ([]Row, error) {
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook: no sheets")
		}
		sheet = list[0]
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("workbook: read properties: %w", err)
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("workbook: read sheet %q: %w", sheet, err)
	}

	r := &sheetReader{
		f:        f,
		sheet:    sheet,
		date1904: props.Date1904 != nil && *props.Date1904,
		styles:   make(map[int]*excelize.Style),
	}

	rows := make([]Row, 0, len(raw))
	for i, cols := range raw {
		row := make(Row, NumColumns)
		for c := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("workbook: cell name: %w", err)
			}
			var v string
			if c < len(cols) {
				v = cols[c]
			}
			row[c] = r.cell(axis, v)
		}
		rows = append(rows, row)
	}

	appLog.Debug("sheet read", "sheet", sheet, "rows", len(rows), "date1904", r.date1904)
	return rows, nil
}

type sheetReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]*excelize.Style
}

func (r *sheetReader) cell(axis, raw string) Cell {
	var c Cell

	st := r.styleOf(axis)
	c.Fill = fillColor(st)

	if raw == "" {
		return c
	}

	typ, err := r.f.GetCellType(r.sheet, axis)
	if err != nil {
		appLog.Debug("cell type unavailable; treating as text", "cell", axis, "err", err)
		c.Value = Text(raw)
		return c
	}
	c.Value = r.value(typ, raw, st)
	return c
}

func (r *sheetReader) styleOf(axis string) *excelize.Style {
	id, err := r.f.GetCellStyle(r.sheet, axis)
	if err != nil {
		return nil
	}
	if st, ok := r.styles[id]; ok {
		return st
	}
	st, err := r.f.GetStyle(id)
	if err != nil {
		st = nil
	}
	r.styles[id] = st
	return st
}

func (r *sheetReader) value(typ excelize.CellType, raw string, st *excelize.Style) Value {
	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return DateTime(t)
		}
		return Text(raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return Text(raw)
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Text(raw)
	}
	// Serials below 1 precede 1900-01-01 and only make sense as times.
	if n >= 1 && isDateFormat(st) {
		if t, err := excelize.ExcelDateToTime(n, r.date1904); err == nil {
			return DateTime(t)
		}
	}
	return Number(n)
}

// fillColor returns the primary colour of a cell fill, or "" when the cell
// has no visible fill.
func fillColor(st *excelize.Style) string {
	if st == nil || len(st.Fill.Color) == 0 {
		return ""
	}
	if st.Fill.Type == "pattern" && st.Fill.Pattern == 0 {
		return ""
	}
	return st.Fill.Color[0]
}

func isDateFormat(st *excelize.Style) bool {
	if st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return hasDateTokens(*st.CustomNumFmt)
	}
	return dateNumFmts[st.NumFmt]
}

// hasDateTokens reports whether a number format code shows a year, month or
// day. Quoted literals, escaped characters and [..] sections are ignored;
// "m" next to hours or seconds means minutes.
func hasDateTokens(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	s := strings.ToLower(b.String())
	if strings.ContainsAny(s, "yd") {
		return true
	}
	return strings.Contains(s, "m") && !strings.ContainsAny(s, "hs")
}

func parseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.DateOnly,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
