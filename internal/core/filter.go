package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filter selects rows by free-text term and month.
type Filter struct {
	Term  string
	Month MonthKey
	// FoldAccents makes the term match regardless of diacritics,
	// so "chien dich" finds "Chiến dịch".
	FoldAccents bool
}

// Apply returns the rows whose DateText or Campaign contains the term
// (case-insensitively) and whose date falls in the selected month. The term
// is matched as typed, so " " only finds values containing a space. The input
// order is preserved and the input slice is not modified.
func (f Filter) Apply(rows []Row) []Row {
	term := f.fold(f.Term)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !f.Month.Matches(r.Date) {
			continue
		}
		if term != "" &&
			!strings.Contains(f.fold(r.DateText), term) &&
			!strings.Contains(f.fold(r.Campaign), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f Filter) fold(s string) string {
	s = strings.ToLower(s)
	if f.FoldAccents {
		s = RemoveAccents(s)
	}
	return s
}

// RemoveAccents strips combining marks after canonical decomposition. The
// Vietnamese "đ" has no decomposition and is mapped to "d" explicitly.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}
