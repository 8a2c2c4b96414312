// Package render projects date groups, KPIs and month options into display
// values ready for the HTML templates and the JSON API.
package render

import (
	"fmt"

	"adspend/internal/core"
)

// Labels holds the user-facing strings the renderer emits.
type Labels struct {
	NoData    string
	AllTime   string
	Month     string // format with month then year
	Campaigns string // format with the distinct campaign count
}

// DefaultLabels returns the Vietnamese labels of the dashboard.
func DefaultLabels() Labels {
	return Labels{
		NoData:    "Không có dữ liệu",
		AllTime:   "Tất cả thời gian",
		Month:     "Tháng %d/%d",
		Campaigns: "%d chiến dịch",
	}
}

// Row is one displayed date group. Expanded is always false after a render;
// the campaign list is toggled client side.
type Row struct {
	ID             string   `json:"id"`
	DateText       string   `json:"date"`
	Spend          string   `json:"spend"`
	Messages       int64    `json:"messages"`
	CostPerMessage string   `json:"cost_per_message"`
	Campaigns      []string `json:"campaigns"`
	CampaignLabel  string   `json:"campaign_label"`
	Expanded       bool     `json:"-"`
}

// Table is the rendered grouped table.
type Table struct {
	Rows        []Row  `json:"rows"`
	Empty       bool   `json:"empty"`
	Placeholder string `json:"-"`
}

// KPIView holds formatted KPI values.
type KPIView struct {
	TotalSpend        string `json:"total_spend"`
	TotalMessages     string `json:"total_messages"`
	AvgCostPerMessage string `json:"avg_cost_per_message"`
}

// MonthOption is one entry of the month selector.
type MonthOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Renderer formats pipeline output for display.
type Renderer struct {
	format *Formatter
	labels Labels
}

func NewRenderer(f *Formatter, labels Labels) *Renderer {
	return &Renderer{format: f, labels: labels}
}

// Table renders one row per group. An empty input yields an empty table that
// carries the "no data" placeholder.
func (r *Renderer) Table(groups []core.DateGroup) Table {
	if len(groups) == 0 {
		return Table{Empty: true, Placeholder: r.labels.NoData}
	}
	rows := make([]Row, 0, len(groups))
	for i, g := range groups {
		names := g.UniqueCampaigns()
		rows = append(rows, Row{
			ID:             fmt.Sprintf("row-%d", i),
			DateText:       g.DateText,
			Spend:          r.format.Currency(g.TotalSpend),
			Messages:       g.TotalMessages,
			CostPerMessage: r.format.Currency(g.CostPerMessage()),
			Campaigns:      names,
			CampaignLabel:  fmt.Sprintf(r.labels.Campaigns, len(names)),
		})
	}
	return Table{Rows: rows}
}

// KPIs formats the summary metrics.
func (r *Renderer) KPIs(k core.KPI) KPIView {
	return KPIView{
		TotalSpend:        r.format.Currency(k.TotalSpend),
		TotalMessages:     r.format.Integer(k.TotalMessages),
		AvgCostPerMessage: r.format.Currency(k.AvgCostPerMessage),
	}
}

// MonthOptions labels the selector entries and marks the selected one.
func (r *Renderer) MonthOptions(keys []core.MonthKey, selected core.MonthKey) []MonthOption {
	out := make([]MonthOption, 0, len(keys))
	for _, k := range keys {
		label := r.labels.AllTime
		if !k.IsAll() {
			label = fmt.Sprintf(r.labels.Month, k.Month, k.Year)
		}
		out = append(out, MonthOption{Value: k.String(), Label: label, Selected: k == selected})
	}
	return out
}
