package normalize

import (
	"regexp"
	"strings"
)

// MinTokenLength is the shortest token Tokenize keeps.
const MinTokenLength = 3

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ReceiptKeywords is the default multilingual list of words that mark a
// document as an invoice or receipt.
var ReceiptKeywords = []string{
	"invoice",
	"rechnung",
	"receipt",
	"beleg",
	"quittung",
	"faktura",
	"bon",
	"bill",
}

// Tokenize lowercases text, splits on every run of characters outside
// [a-z0-9] and drops tokens shorter than MinTokenLength. Tokens are
// deduplicated in first-seen order.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	fields := strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(text), " "))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) < MinTokenLength || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// FindAny returns the first needle contained in haystack, compared
// case-insensitively, and whether one was found.
func FindAny(haystack string, needles []string) (string, bool) {
	if haystack == "" || len(needles) == 0 {
		return "", false
	}
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
