// Package numwords renders decimal currency amounts as English words for
// the totals section of generated invoices.
package numwords

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Default currency nouns.
const (
	DefaultUnit    = "euro"
	DefaultSubunit = "cent"
)

var ones = []string{
	"zero", "one", "two", "three", "four",
	"five", "six", "seven", "eight", "nine",
}

var teens = []string{
	"ten", "eleven", "twelve", "thirteen", "fourteen",
	"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty",
	"fifty", "sixty", "seventy", "eighty", "ninety",
}

// AmountToWords renders an amount using the default euro/cent nouns.
// The result is deterministic for identical input and is one-directional;
// it is never parsed back.
func AmountToWords(amount decimal.Decimal) string {
	return AmountToCurrencyWords(amount, DefaultUnit, DefaultSubunit)
}

// AmountToCurrencyWords renders an amount with the given unit and subunit
// nouns. The amount is rounded half-up to two decimal places, split into
// whole units and cents, and each part is pluralized independently.
// Negative amounts carry a leading "minus". Only the first letter of the
// result is capitalized.
func AmountToCurrencyWords(amount decimal.Decimal, unit, subunit string) string {
	rounded := amount.Round(2)
	negative := rounded.IsNegative()
	if negative {
		rounded = rounded.Neg()
	}
	whole := rounded.IntPart()
	cents := rounded.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()

	var b strings.Builder
	if negative {
		b.WriteString("minus ")
	}
	b.WriteString(intToWords(whole))
	b.WriteByte(' ')
	b.WriteString(pluralize(unit, whole))

	if cents > 0 {
		b.WriteString(" and ")
		b.WriteString(intToWords(cents))
		b.WriteByte(' ')
		b.WriteString(pluralize(subunit, cents))
	}

	return capitalize(b.String())
}

// intToWords converts a non-negative integer to words by recursive
// grouping into millions and thousands.
func intToWords(n int64) string {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return "zero"
	}
	return strings.TrimSpace(groupWords(n))
}

func groupWords(n int64) string {
	switch {
	case n >= 1_000_000:
		rest := ""
		if n%1_000_000 != 0 {
			rest = " " + groupWords(n%1_000_000)
		}
		return groupWords(n/1_000_000) + " million" + rest
	case n >= 1_000:
		rest := ""
		if n%1_000 != 0 {
			rest = " " + groupWords(n%1_000)
		}
		return belowThousand(n/1_000) + " thousand" + rest
	default:
		return belowThousand(n)
	}
}

// belowThousand converts 1-999: hundreds digit, then teens lookup or
// tens plus ones.
func belowThousand(n int64) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, ones[n/100], "hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 10:
		parts = append(parts, ones[n])
	case n < 20:
		parts = append(parts, teens[n-10])
	default:
		parts = append(parts, tens[n/10])
		if n%10 != 0 {
			parts = append(parts, ones[n%10])
		}
	}
	return strings.Join(parts, " ")
}

func pluralize(noun string, count int64) string {
	if count == 1 {
		return noun
	}
	return noun + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
