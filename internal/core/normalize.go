package core

import (
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Normalizer turns RawRecords into Rows. Column lookup happens once per
// record here so the rest of the pipeline works on typed fields only.
type Normalizer struct {
	schema      Schema
	layout      DateLayout
	placeholder string
	policy      *bluemonday.Policy
}

// NewNormalizer creates a normalizer for the given columns and date layout.
// An empty placeholder falls back to DefaultCampaignPlaceholder.
func NewNormalizer(schema Schema, layout DateLayout, placeholder string) *Normalizer {
	if strings.TrimSpace(placeholder) == "" {
		placeholder = DefaultCampaignPlaceholder
	}
	if layout == "" {
		layout = LayoutDMY
	}
	return &Normalizer{
		schema:      schema,
		layout:      layout,
		placeholder: placeholder,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Normalize coerces a single record. It never fails: bad cells degrade to
// zero values.
func (n *Normalizer) Normalize(rec RawRecord) Row {
	dateVal, _ := Lookup(rec, n.schema.Date)
	spendVal, _ := Lookup(rec, n.schema.Spend)
	msgVal, _ := Lookup(rec, n.schema.Messages)
	campVal, _ := Lookup(rec, n.schema.Campaign)

	dateText := textOf(dateVal)
	return Row{
		DateText: dateText,
		Date:     ParseDate(dateText, n.layout),
		Spend:    ParseAmount(spendVal),
		Messages: ParseCount(msgVal),
		Campaign: n.campaignName(campVal),
		Source:   rec,
	}
}

// NormalizeAll coerces every record and returns the rows newest first.
func (n *Normalizer) NormalizeAll(recs []RawRecord) []Row {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, n.Normalize(rec))
	}
	SortRows(rows)
	return rows
}

// campaignName keeps the cell text as typed unless it carries real markup
// (a closing or self-closing tag), which is stripped. Plain text such as
// "Promo <new customers>" is left alone.
func (n *Normalizer) campaignName(v any) string {
	name := textOf(v)
	if hasMarkup(name) {
		name = html.UnescapeString(n.policy.Sanitize(name))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return n.placeholder
	}
	return name
}

func hasMarkup(s string) bool {
	return strings.Contains(s, "</") || strings.Contains(s, "/>")
}

// SortRows orders rows newest first. Rows without a date go last and keep
// their relative order.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].Date, rows[j].Date)
	})
}

func newerFirst(a, b Date) bool {
	switch {
	case a.Valid() && b.Valid():
		return a.After(b.Time)
	case a.Valid():
		return true
	default:
		return false
	}
}
