package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// NumberFormat describes how a numeric column is rendered.
type NumberFormat struct {
	Decimals     int
	DecimalSep   string
	ThousandsSep string
}

// DefaultNumberFormat renders 1234.5 as "1.234,50".
var DefaultNumberFormat = NumberFormat{Decimals: 2, DecimalSep: ",", ThousandsSep: "."}

// Format renders raw, which must parse as a float. ok is false otherwise.
func (f NumberFormat) Format(raw string) (string, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return raw, false
	}

	decimals := max(f.Decimals, 0)
	scale := math.Pow10(decimals)
	rounded := math.Round(preRound(v*scale)) / scale
	negative := rounded < 0
	text := strconv.FormatFloat(math.Abs(rounded), 'f', decimals, 64)

	intPart, fracPart, _ := strings.Cut(text, ".")
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(f.ThousandsSep)
		}
		b.WriteRune(digit)
	}
	if decimals > 0 {
		b.WriteString(f.DecimalSep)
		b.WriteString(fracPart)
	}
	return b.String(), true
}

// preRound trims v to 15 significant digits so that values such as 1.005*100,
// held as 100.49999999999999, round as their decimal text reads.
func preRound(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 15, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Layouts tried, in order, when a column value is read as a date/time.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
}

// parseDateTime reads the textual date/time forms the supported drivers return.
func parseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatDateTime renders raw with a strftime layout such as "%d/%m/%Y %H:%M".
func formatDateTime(raw, layout string) (string, bool) {
	t, ok := parseDateTime(raw)
	if !ok {
		return raw, false
	}
	return strftime.Format(layout, t), true
}

// formatter applies the per-column transforms registered on a QuerySpec.
type formatter struct {
	numbers map[string]NumberFormat
	dates   map[string]string
}

// apply formats one non-null value. Number formatting runs first; the date/time
// layout then reads the raw value and replaces the result only when it parses.
func (f *formatter) apply(column, raw string) string {
	if f == nil {
		return raw
	}
	value := raw
	if nf, ok := f.numbers[column]; ok {
		value, _ = nf.Format(raw)
	}
	if layout, ok := f.dates[column]; ok {
		if formatted, ok := formatDateTime(raw, layout); ok {
			value = formatted
		}
	}
	return value
}
