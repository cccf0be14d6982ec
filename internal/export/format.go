// Package export renders waterfall results and sensitivity tables as text
// tables, JSON, CSV, XLSX workbooks and PDF reports.
package export

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return f, true
	}
	return "", false
}

// Formatter formats money, percentages and multiples for humans.
type Formatter struct {
	Symbol  string
	printer *message.Printer
}

// NewFormatter returns a Formatter using English digit grouping.
func NewFormatter(symbol string) Formatter {
	return Formatter{Symbol: symbol, printer: message.NewPrinter(language.English)}
}

// Cents rounds v to two decimals, half away from zero.
func Cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Money renders v as e.g. "$1,234.50" or "-$20.00".
func (f Formatter) Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := Cents(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	amount, _ := d.Float64()
	return sign + f.Symbol + f.p().Sprintf("%.2f", amount)
}

// Percent renders a fraction with one decimal, 0.2168 as "21.7%".
func (f Formatter) Percent(v float64) string {
	return f.p().Sprintf("%.1f%%", v*100)
}

// Multiple renders a multiple of invested capital, e.g. "1.77x".
func (f Formatter) Multiple(v float64) string {
	return f.p().Sprintf("%.2fx", v)
}

func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}

// plain renders cents without grouping or symbol for machine formats.
func plain(v float64) string {
	return Cents(v).StringFixed(2)
}
