package workbook

import (
	"strconv"
	"strings"
	"time"
)

// Value is a typed cell value. A nil Value is an empty cell.
type Value interface {
	value()
	String() string
}

// Text is a string cell.
type Text string

// DateTime is a cell holding a date or date-time.
type DateTime time.Time

// Number is a numeric cell without a date format.
type Number float64

// Bool is a boolean cell.
type Bool bool

func (Text) value()     {}
func (DateTime) value() {}
func (Number) value()   {}
func (Bool) value()     {}

func (t Text) String() string { return string(t) }

func (d DateTime) String() string { return time.Time(d).Format(time.DateTime) }

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

func (b Bool) String() string { return strings.ToUpper(strconv.FormatBool(bool(b))) }

// Cell is one positional cell of a row. Fill is the cell's fill colour as
// the workbook stores it (RGB or ARGB hex), or "".
type Cell struct {
	Value Value
	Fill  string
}

// Row is the ordered cells of one sheet row.
type Row []Cell

// Column positions of the schedule layout.
const (
	ColDate = iota
	ColTime
	ColSubject
	ColLecturer
	ColSetting

	NumColumns
)
