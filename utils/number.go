package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumberRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseLeadingDecimal reads the longest numeric prefix of s, ignoring leading
// whitespace, the way spreadsheet exports are usually read ("12 uds" is 12).
// ok is false when s does not start with a number.
func ParseLeadingDecimal(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	m := leadingNumberRegex.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		// exponent overflow and the like
		return decimal.Zero, false
	}
	return d, true
}

// ParseCommaDecimal treats the first comma as the decimal separator and falls
// back to zero.
func ParseCommaDecimal(s string) decimal.Decimal {
	d, ok := ParseLeadingDecimal(strings.Replace(s, ",", ".", 1))
	if !ok {
		return decimal.Zero
	}
	return d
}
