package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OtherBucket is the DateText assigned to rows whose date field is empty.
const OtherBucket = "Other"

// DefaultCampaignPlaceholder replaces a missing campaign name.
const DefaultCampaignPlaceholder = "unnamed"

type (
	// RawRecord is one upstream row keyed by loosely-specified column names.
	RawRecord map[string]any

	// Date is a calendar date at midnight UTC. The zero value means "no date".
	Date struct {
		time.Time
	}

	// Row is a RawRecord coerced into the fixed reporting schema.
	Row struct {
		DateText string
		Date     Date
		Spend    decimal.Decimal
		Messages int64
		Campaign string
		Source   RawRecord
	}

	// DateGroup aggregates every Row sharing the same DateText.
	DateGroup struct {
		DateText      string
		Date          Date
		TotalSpend    decimal.Decimal
		TotalMessages int64
		Campaigns     []string // duplicates preserved
	}

	// KPI holds the summary metrics for a row set.
	KPI struct {
		TotalSpend        decimal.Decimal
		TotalMessages     int64
		AvgCostPerMessage decimal.Decimal
	}
)

// NewDate builds a Date from calendar components. Out-of-range days roll over
// into the following month the same way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Valid reports whether the date carries a value.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String renders the date as YYYY-MM-DD, or the empty string for no date.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format("2006-01-02")
}

// CostPerMessage returns spend divided by messages, or zero when there are none.
func CostPerMessage(spend decimal.Decimal, messages int64) decimal.Decimal {
	if messages <= 0 {
		return decimal.Zero
	}
	return spend.Div(decimal.NewFromInt(messages))
}

// CostPerMessage is the group's spend per started conversation.
func (g DateGroup) CostPerMessage() decimal.Decimal {
	return CostPerMessage(g.TotalSpend, g.TotalMessages)
}
