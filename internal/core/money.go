// Package core provides the ad-spend domain model and the pure pipeline steps
// that turn upstream rows into date groups and KPIs.
//
// This file contains the lenient numeric coercions applied to spend and
// message-count cells.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a spend cell into a non-negative decimal.
//
// Numbers are used as-is and strings are trimmed and parsed. Empty, missing,
// non-numeric and negative inputs all become zero.
//
// Examples:
//
//	ParseAmount("1000")   -> 1000
//	ParseAmount(" 12.5 ") -> 12.5
//	ParseAmount("abc")    -> 0
//	ParseAmount(-3)       -> 0
func ParseAmount(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return ParseAmount(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case int32:
		d = decimal.NewFromInt(int64(x))
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseCount coerces a message-count cell into a non-negative integer.
// Empty strings and missing values count as zero, as do values too large for
// an int64. Fractional values are rounded to the nearest integer.
func ParseCount(v any) int64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		if x < 0 {
			return 0
		}
		return x
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	f = math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

// addCount adds two non-negative counts, saturating at math.MaxInt64.
func addCount(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// textOf renders a cell as text. Missing values become the empty string.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
