// Package normalize turns loosely typed schedule cells into display strings,
// sortable start offsets, highlight colours and setting categories.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"didacal/internal/model"
)

// TimeValue is the closed set of representations a time cell can arrive in.
// A nil TimeValue means the cell was empty.
type TimeValue interface {
	timeValue()
}

// Text is a free-text time such as "730", "8 - 9" or "1:30 PM".
type Text string

// DateLike is a range like "8-9" that the spreadsheet stored as a calendar
// date; Month and Day hold the two captured numbers.
type DateLike struct {
	Month int
	Day   int
}

// FractionalDay is a serial time: a fraction of a day in [0,1).
type FractionalDay float64

// Other is any remaining value, already in string form.
type Other string

func (Text) timeValue()          {}
func (DateLike) timeValue()      {}
func (FractionalDay) timeValue() {}
func (Other) timeValue()         {}

var (
	dashRe       = regexp.MustCompile(`\s*[-–]\s*`)
	ampmRe       = regexp.MustCompile(`(?i)\b(?:am|pm)\b`)
	ampmCaptRe   = regexp.MustCompile(`\b(am|pm)\b`)
	rangeSplitRe = regexp.MustCompile(`[-–]`)
)

// FormatTime renders a time cell as a display string. It never fails:
// unrecognised input is returned in string form.
func FormatTime(v TimeValue) string {
	switch t := v.(type) {
	case nil:
		return ""
	case Text:
		s := dashRe.ReplaceAllString(strings.TrimSpace(string(t)), "–")
		if s == "" {
			return ""
		}
		if !ampmRe.MatchString(s) {
			s += " AM"
		}
		return s
	case DateLike:
		return fmt.Sprintf("%d–%d AM", t.Month, t.Day)
	case FractionalDay:
		return formatFraction(float64(t))
	case Other:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}

func formatFraction(f float64) string {
	minutes := int(math.Round(f * 24 * 60))
	hour, minute := minutes/60, minutes%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, suffix)
}

// StartMinutes derives minutes after midnight from the first time in a
// display string ("730", "7:30", "8–9 AM", "08:00 PM"). Strings it cannot
// read return model.Unparsable.
func StartMinutes(display string) int {
	if display == "" {
		return model.Unparsable
	}

	s := strings.ToLower(display)
	token := strings.TrimSpace(rangeSplitRe.Split(s, 2)[0])

	marker := ""
	if m := ampmCaptRe.FindStringSubmatch(token); m != nil {
		marker = m[1]
	} else if m := ampmCaptRe.FindStringSubmatch(s); m != nil {
		marker = m[1]
	}

	digits := ampmCaptRe.ReplaceAllString(token, "")
	digits = strings.NewReplacer(":", "", " ", "").Replace(digits)
	if !isDigits(digits) {
		return model.Unparsable
	}

	var hour, minute int
	if len(digits) <= 2 {
		hour, _ = strconv.Atoi(digits)
	} else {
		hour, _ = strconv.Atoi(digits[:len(digits)-2])
		minute, _ = strconv.Atoi(digits[len(digits)-2:])
	}

	switch {
	case marker == "pm" && hour < 12:
		hour += 12
	case marker != "pm" && hour == 12:
		hour = 0
	}

	if hour > 23 || minute > 59 {
		return model.Unparsable
	}
	return hour*60 + minute
}

func isDigits(s string) bool {
	if s == "" || len(s) > 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
