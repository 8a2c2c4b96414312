package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthKey selects a calendar month. The zero value selects every month.
type MonthKey struct {
	Month int
	Year  int
}

// AllTime is the MonthKey that disables month filtering.
var AllTime = MonthKey{}

// IsAll reports whether the key disables month filtering.
func (k MonthKey) IsAll() bool {
	return k == AllTime
}

// Matches reports whether d falls in the selected month. A missing date never
// matches a concrete month.
func (k MonthKey) Matches(d Date) bool {
	if k.IsAll() {
		return true
	}
	if !d.Valid() {
		return false
	}
	return d.Month() == k.Month && d.Year() == k.Year
}

// String renders the key as "M/YYYY", or "all".
func (k MonthKey) String() string {
	if k.IsAll() {
		return "all"
	}
	return fmt.Sprintf("%d/%d", k.Month, k.Year)
}

// ParseMonthKey reads "M/YYYY" or "all". The empty string means "all". The
// year is not range-checked beyond being non-negative: dates read through the
// fallback layouts may fall outside the numeric parser's bounds and must
// still be selectable.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllTime, nil
	}
	m, y, ok := strings.Cut(s, "/")
	if !ok {
		return AllTime, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	month, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || month < 1 || month > 12 {
		return AllTime, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	year, err := strconv.Atoi(strings.TrimSpace(y))
	if err != nil || year < 0 {
		return AllTime, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey{Month: month, Year: year}, nil
}

// MonthOptions lists the distinct months present among rows with a date,
// newest first, preceded by AllTime. The default selection is the month of
// now when present, else the newest month, else AllTime.
func MonthOptions(rows []Row, now time.Time) (options []MonthKey, selected MonthKey) {
	seen := make(map[MonthKey]struct{})
	var months []MonthKey
	for _, r := range rows {
		if !r.Date.Valid() {
			continue
		}
		k := MonthKey{Month: r.Date.Month(), Year: r.Date.Year()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		months = append(months, k)
	}

	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year > months[j].Year
		}
		return months[i].Month > months[j].Month
	})

	options = append([]MonthKey{AllTime}, months...)

	current := MonthKey{Month: int(now.Month()), Year: now.Year()}
	switch {
	case len(months) == 0:
		selected = AllTime
	case hasKey(seen, current):
		selected = current
	default:
		selected = months[0]
	}
	return options, selected
}

func hasKey(set map[MonthKey]struct{}, k MonthKey) bool {
	_, ok := set[k]
	return ok
}
