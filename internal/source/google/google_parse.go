package google

import (
	"fmt"
	"strings"

	"adspend/internal/core"
)

// valuesToRecords converts a values matrix (as returned by the Sheets API)
// into records keyed by the header row. Header cells are kept verbatim so the
// normalizer's fuzzy lookup sees the real column names. Blank header cells
// and cells past the end of a short row are left out. Fully blank rows are
// skipped.
func valuesToRecords(values [][]interface{}) []core.RawRecord {
	if len(values) == 0 {
		return []core.RawRecord{}
	}
	headers := toStrings(values[0])
	records := make([]core.RawRecord, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := values[i]
		rec := make(core.RawRecord, len(headers))
		blank := true
		for col, h := range headers {
			if strings.TrimSpace(h) == "" || col >= len(row) {
				continue
			}
			rec[h] = row[col]
			if strings.TrimSpace(fmt.Sprint(row[col])) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}
