package dashboard

import (
	"time"

	"adspend/internal/core"
	"adspend/internal/render"
)

// Status is the pipeline state observed by the presentation layer.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// corsHint is appended to every refresh error shown to users.
const corsHint = "(Check CORS / upstream access configuration)"

// State describes the controller after its latest refresh attempt.
type State struct {
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetched_at"`
	Rows       int       `json:"rows"`
}

// Query is one user's filter selection. When MonthSet is false the default
// month selection applies.
type Query struct {
	Term     string
	Month    core.MonthKey
	MonthSet bool
}

// View is everything needed to draw the dashboard for one Query.
type View struct {
	State State `json:"state"`

	Term  string        `json:"term"`
	Month core.MonthKey `json:"-"`

	Months []render.MonthOption `json:"months"`
	KPIs   render.KPIView       `json:"kpis"`
	Table  render.Table         `json:"table"`

	Groups  []core.DateGroup `json:"-"`
	Summary core.KPI         `json:"-"`
	Matched int              `json:"matched"`
}

// computed is the cacheable part of a View.
type computed struct {
	groups  []core.DateGroup
	summary core.KPI
	matched int
	kpis    render.KPIView
	table   render.Table
}
