package reporter

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MaxFractionDigits caps the fractional digits shown for any amount.
const MaxFractionDigits = 2

// separatorSample is printed once per locale to learn its group and decimal
// separators.
const separatorSample = 1234567.5

// NumberFormatter renders amounts with locale digit grouping. Digits come
// from the decimal itself, so large values keep every digit.
type NumberFormatter struct {
	group   string
	decimal string
}

// NewNumberFormatter creates a formatter for the given locale.
func NewNumberFormatter(tag language.Tag) *NumberFormatter {
	sample := message.NewPrinter(tag).Sprint(number.Decimal(separatorSample, number.MaxFractionDigits(1)))
	group, dec := separators(sample)
	return &NumberFormatter{group: group, decimal: dec}
}

var defaultFormatter = NewNumberFormatter(language.English)

// separators reads the separators out of a printed "1234567.5". Locales
// that print other digits or grouping sizes fall back to English.
func separators(sample string) (string, string) {
	if !strings.HasPrefix(sample, "1") || !strings.HasSuffix(sample, "5") || len(sample) < 2 {
		return ",", "."
	}
	middle := sample[1 : len(sample)-1]

	i := strings.Index(middle, "234")
	j := strings.Index(middle, "567")
	if i < 0 || j < i+3 || middle[i+3:j] != middle[:i] {
		return ",", "."
	}

	dec := middle[j+3:]
	if dec == "" {
		return ",", "."
	}
	return middle[:i], dec
}

// Format renders d grouped, rounded to at most two fraction digits with no
// trailing zeros. A null value renders as the empty string.
func (f *NumberFormatter) Format(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return f.FormatDecimal(d.Decimal)
}

// FormatDecimal renders a non-null decimal.
func (f *NumberFormatter) FormatDecimal(d decimal.Decimal) string {
	s := d.Round(MaxFractionDigits).String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := sign + f.groupDigits(whole)
	if frac != "" {
		out += f.decimal + frac
	}
	return out
}

func (f *NumberFormatter) groupDigits(digits string) string {
	if len(digits) <= 3 || f.group == "" {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(f.group)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatAmount formats with the default English locale.
func FormatAmount(d decimal.NullDecimal) string {
	return defaultFormatter.Format(d)
}

// FormatDecimal formats a non-null decimal with the default English locale.
func FormatDecimal(d decimal.Decimal) string {
	return defaultFormatter.FormatDecimal(d)
}
