package reporting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// formatMoney renders v rounded to whole currency units with thousands
// separators, e.g. -1234567.8 -> "-$1,234,568".
func formatMoney(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "$" + groupThousands(d.StringFixed(0))
}

// formatSignedMoney is formatMoney with an explicit "+" for non-negative values.
func formatSignedMoney(v float64) string {
	s := formatMoney(v)
	if s != "n/a" && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// formatPct renders a fraction as a percentage with the given decimals.
func formatPct(v float64, places int32) string {
	if !finite(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(places) + "%"
}

// formatFixed renders v with a fixed number of decimals.
func formatFixed(v float64, places int32) string {
	if !finite(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
