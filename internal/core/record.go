package core

import (
	"sort"
	"strings"
)

// Schema names the four upstream columns a Row is built from.
type Schema struct {
	Date     string
	Spend    string
	Messages string
	Campaign string
}

// DefaultSchema returns the column names used by the ads report table.
func DefaultSchema() Schema {
	return Schema{
		Date:     "Bắt đầu báo cáo",
		Spend:    "Số tiền đã chi tiêu (VND)",
		Messages: "Lượt bắt đầu cuộc trò chuyện qua tin nhắn",
		Campaign: "Tên chiến dịch",
	}
}

// Validate reports an error when any column name is blank.
func (s Schema) Validate() error {
	for _, name := range []string{s.Date, s.Spend, s.Messages, s.Campaign} {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyColumn
		}
	}
	return nil
}

// Lookup returns the value stored under key. When the exact key is missing it
// falls back to the first key (in sorted order) that matches after trimming
// and case folding. The second result is false when nothing matches.
func Lookup(rec RawRecord, key string) (any, bool) {
	if v, ok := rec[key]; ok {
		return v, true
	}
	want := strings.TrimSpace(key)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			return rec[k], true
		}
	}
	return nil, false
}
