// Package workbooktest builds small xlsx schedule files for tests.
package workbooktest

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Filled is a cell value with a solid fill colour ("RRGGBB").
type Filled struct {
	Value any
	Color string
}

// Sheet is a named grid of cell values.
type Sheet struct {
	Name string
	Rows [][]any
}

// Serial stores a raw number without any number format.
type Serial float64

// Write saves sheets to a new workbook at path, in order. Row 0 of each
// sheet lands in spreadsheet row 1; nil values leave the cell empty.
func Write(tb testing.TB, path string, sheets ...Sheet) {
	tb.Helper()

	f := excelize.NewFile()
	defer f.Close()

	styles := make(map[string]int)
	for i, sh := range sheets {
		sheet, rows := sh.Name, sh.Rows
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				tb.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			tb.Fatalf("new sheet %s: %v", sheet, err)
		}
		for r, row := range rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					tb.Fatal(err)
				}
				if filled, ok := v.(Filled); ok {
					id, ok := styles[filled.Color]
					if !ok {
						id, err = f.NewStyle(&excelize.Style{
							Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{filled.Color}},
						})
						if err != nil {
							tb.Fatalf("new style: %v", err)
						}
						styles[filled.Color] = id
					}
					if err := f.SetCellStyle(sheet, axis, axis, id); err != nil {
						tb.Fatalf("set style %s: %v", axis, err)
					}
					v = filled.Value
				}
				if s, ok := v.(Serial); ok {
					err = f.SetCellFloat(sheet, axis, float64(s), -1, 64)
				} else {
					err = f.SetCellValue(sheet, axis, v)
				}
				if err != nil {
					tb.Fatalf("set %s: %v", axis, err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		tb.Fatalf("save %s: %v", filepath.Base(path), err)
	}
}
