// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of the dashboard filter carried by query
// strings and form posts.

package http

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"adspend/internal/core"
	"adspend/internal/dashboard"
)

const (
	paramTerm  = "q"
	paramMonth = "month"

	maxTermLength = 200
)

// ParseDashboardQuery extracts the search term and month selection. The term
// keeps its surrounding whitespace since matching uses it as typed. An
// absent month keeps the default selection. An invalid month also keeps the
// default selection and is reported through the error so callers can log it;
// the returned query is always usable.
func ParseDashboardQuery(values url.Values) (dashboard.Query, error) {
	q := dashboard.Query{Term: truncate(stripControl(values.Get(paramTerm)), maxTermLength)}

	raw := strings.TrimSpace(values.Get(paramMonth))
	if raw == "" {
		return q, nil
	}
	k, err := core.ParseMonthKey(raw)
	if err != nil {
		return q, fmt.Errorf("month parameter: %w", err)
	}
	q.Month = k
	q.MonthSet = true
	return q, nil
}

// EncodeDashboardQuery is the inverse of ParseDashboardQuery.
func EncodeDashboardQuery(q dashboard.Query) url.Values {
	v := url.Values{}
	if q.Term != "" {
		v.Set(paramTerm, q.Term)
	}
	if q.MonthSet {
		v.Set(paramMonth, q.Month.String())
	}
	return v
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
