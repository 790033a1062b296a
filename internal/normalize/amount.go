package normalize

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// amountLocales are the grouping conventions rendered in addition to the
// plain dot and comma forms, with each locale's decimal separator.
var amountLocales = []struct {
	tag     language.Tag
	decimal string
}{
	{language.AmericanEnglish, "."},
	{language.German, ","},
}

// AmountVariants renders an amount in minor units the ways a person or a
// document is likely to write it: "12.34", "12,34" and locale-grouped forms
// such as "1,234.56" and "1.234,56". The sign is ignored. A nil amount
// yields no variants.
func AmountVariants(minor *int64) []string {
	if minor == nil {
		return nil
	}

	abs := magnitude(*minor)
	major, cents := abs/100, abs%100

	fixed := fmt.Sprintf("%d.%02d", major, cents)
	variants := []string{fixed, strings.Replace(fixed, ".", ",", 1)}

	for _, l := range amountLocales {
		grouped := message.NewPrinter(l.tag).Sprintf("%d", major)
		variants = append(variants, fmt.Sprintf("%s%s%02d", grouped, l.decimal, cents))
	}

	return dedupe(variants)
}

// FormatAmount renders minor units with two decimals and the sign kept, for
// display only.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
	}
	abs := magnitude(minor)
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// magnitude is the absolute value of v, exact for math.MinInt64.
func magnitude(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
