package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	processorPrefix = regexp.MustCompile(`(?i)^\s*(?:pp\s*\*|sq\s*\*|paypal\s*\*|ec\s+|sepa\s+)`)
	domainSuffix    = regexp.MustCompile(`(?i)\.(?:com|de|net|org|io|co|eu|at|ch|fr|nl|it|es|uk|info|biz)\b.*$`)
	legalSuffix     = regexp.MustCompile(`(?i)[\s,]+(?:gmbh(?:\s*&\s*co\.?\s*kg)?|ag|kg|se|ug|inc\.?|llc|ltd\.?|limited|corp\.?|co\.?|plc|s\.?\s?a\.?\s?r\.?\s?l\.?|s\.?a\.?|b\.?v\.?|e\.?k\.?|oy|ab)\s*$`)
	referenceTail   = regexp.MustCompile(`[\s*#/.-]*\d[\d\s*#/.-]*$`)
	asteriskRun     = regexp.MustCompile(`\*{3,}`)
	maskedDigits    = regexp.MustCompile(`(?i)\b[x*]{2,}\d+\b|\b\d+[x*]{2,}\d*\b`)
	nonLetter       = regexp.MustCompile(`[^\p{L}]+`)
)

// CleanPartnerPhrase extracts a single search keyword from a noisy bank
// statement partner field. Processor prefixes, domain and legal-entity
// suffixes, reference tails and masked card numbers are removed; the first
// remaining word of at least three letters is returned, or "" if none.
func CleanPartnerPhrase(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	for processorPrefix.MatchString(s) {
		s = processorPrefix.ReplaceAllString(s, "")
	}
	s = asteriskRun.ReplaceAllString(s, " ")
	s = maskedDigits.ReplaceAllString(s, " ")
	s = domainSuffix.ReplaceAllString(s, "")

	for {
		trimmed := strings.TrimSpace(referenceTail.ReplaceAllString(legalSuffix.ReplaceAllString(s, ""), ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}

	for _, word := range strings.Fields(nonLetter.ReplaceAllString(s, " ")) {
		if utf8.RuneCountInString(word) >= 3 {
			return word
		}
	}
	return ""
}
