package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts and counts for one locale and currency.
type Formatter struct {
	printer *message.Printer
	scale   int
	symbol  string
	group   string
	point   string
}

// NewFormatter builds a formatter for a BCP 47 locale and an ISO 4217 code,
// e.g. ("vi", "VND").
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	p := message.NewPrinter(tag)
	group, point := separators(p)
	return &Formatter{
		printer: p,
		scale:   scale,
		symbol:  p.Sprint(currency.Symbol(unit)),
		group:   group,
		point:   point,
	}, nil
}

// separators reads the locale's digit grouping and decimal marks off the
// printer's own output.
func separators(p *message.Printer) (group, point string) {
	group = strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")
	point = strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 0.5), "0"), "5")
	if point == "" {
		point = "."
	}
	return group, point
}

// Currency formats an amount rounded to the currency's standard digits,
// followed by its symbol: "1.500.000 ₫".
// The digits come from the exact decimal, so amounts of any size keep every
// digit.
func (f *Formatter) Currency(d decimal.Decimal) string {
	s := d.StringFixed(int32(f.scale))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	num := groupDigits(whole, f.group)
	if frac != "" {
		num += f.point + frac
	}
	if neg {
		num = "-" + num
	}
	return num + " " + f.symbol
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Integer formats n with the locale's digit grouping.
func (f *Formatter) Integer(n int64) string {
	return f.printer.Sprintf("%d", n)
}
