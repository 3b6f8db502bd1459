package normalize

import (
	"strings"

	"didacal/internal/model"
)

// HighlightColor maps a cell fill (an RGB or ARGB hex string) to a
// "#RRGGBB" display colour. White, black, absent and malformed fills report
// ok == false. Only the last six hex digits are considered, so alpha
// prefixes such as "FF1A2B3C" are accepted.
func HighlightColor(fill string) (color string, ok bool) {
	fill = strings.TrimPrefix(strings.TrimSpace(fill), "#")
	if len(fill) < 6 {
		return "", false
	}
	rgb := fill[len(fill)-6:]
	if !isHex(rgb) {
		return "", false
	}
	switch strings.ToLower(rgb) {
	case "ffffff", "000000":
		return "", false
	}
	return "#" + rgb, true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// ClassifySetting buckets setting text: anything starting with "v"
// (case-insensitive) is virtual, everything else in person.
func ClassifySetting(text string) model.Setting {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "v") {
		return model.Virtual
	}
	return model.InPerson
}
