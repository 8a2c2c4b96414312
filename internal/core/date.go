package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout selects how an ambiguous numeric date like 01/02/2024 is read.
type DateLayout string

const (
	LayoutDMY DateLayout = "dmy"
	LayoutMDY DateLayout = "mdy"
)

const (
	minYear = 2000
	maxYear = 2100
)

var separatorReplacer = strings.NewReplacer("-", "/", ".", "/")

// Layouts tried when the input is not a three-part numeric date.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDateLayout converts a configuration value into a DateLayout.
func ParseDateLayout(s string) (DateLayout, error) {
	switch DateLayout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutDMY, "":
		return LayoutDMY, nil
	case LayoutMDY:
		return LayoutMDY, nil
	default:
		return "", fmt.Errorf("unknown date layout %q", s)
	}
}

// ParseDate reads a report date. Separators "-" and "." are treated as "/".
// A three-part value is read in the given layout, or as Y/M/D when the first
// part has four digits, and is rejected unless the year is in [2000, 2100],
// the month in [1, 12] and the day in [1, 31]. Anything else goes through a
// few generic layouts. The zero Date is returned when nothing parses.
func ParseDate(s string, layout DateLayout) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}

	parts := strings.Split(separatorReplacer.Replace(s), "/")
	if len(parts) == 3 {
		return parseNumericDate(parts, layout)
	}

	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return Date{}
}

func parseNumericDate(parts []string, layout DateLayout) Date {
	var nums [3]int
	var widths [3]int
	for i, p := range parts {
		n, w, ok := leadingInt(p)
		if !ok {
			return Date{}
		}
		nums[i], widths[i] = n, w
	}

	var year, month, day int
	switch {
	case widths[0] == 4:
		year, month, day = nums[0], nums[1], nums[2]
	case layout == LayoutMDY:
		month, day, year = nums[0], nums[1], nums[2]
	default:
		day, month, year = nums[0], nums[1], nums[2]
	}

	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}
	}
	return NewDate(year, month, day)
}

// leadingInt parses the run of digits at the start of s, ignoring leading
// spaces. It returns the value and the number of digits read.
func leadingInt(s string) (int, int, bool) {
	s = strings.TrimLeft(s, " ")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, 0, false
	}
	return n, end, true
}
