package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/paper-trail/internal/model"
)

var (
	bareDomain    = regexp.MustCompile(`(?i)^(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)
	bareEmail     = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@(?:[a-z0-9-]+\.)+[a-z]{2,}$`)
	filenameToken = regexp.MustCompile(`[A-Za-z]{0,5}-?\d{3,}(?:[./-]\d+)*`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// BuildSearchQueries expands a base query into mail provider query variants:
// the base itself, a from: variant when the base is a bare domain or
// address, and filename: variants for invoice or order numbers found in the
// base (and, with includeAnchorTokens, in the anchor description and
// reference). Results are deduplicated in discovery order.
func BuildSearchQueries(base string, anchor model.Anchor, includeAnchorTokens bool) []string {
	base = strings.TrimSpace(base)
	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	add(base)

	if base != "" && !strings.Contains(base, ":") && (bareDomain.MatchString(base) || bareEmail.MatchString(base)) {
		add("from:" + base)
	}

	sources := []string{base}
	if includeAnchorTokens {
		sources = append(sources, anchor.Description, anchor.Reference)
	}

	for _, src := range sources {
		if !hasDigit(src) {
			continue
		}
		for _, tok := range FilenameTokens(src) {
			add("filename:" + tok)
		}
	}

	return out
}

// FilenameTokens extracts reference-number-like substrings (short letter
// prefix, optional dash, three or more digits, optional separated suffix)
// from s and from s with whitespace removed.
func FilenameTokens(s string) []string {
	var out []string
	seen := make(map[string]bool)
	compact := strings.Join(strings.Fields(s), "")

	for _, variant := range []string{s, compact} {
		for _, m := range filenameToken.FindAllString(variant, -1) {
			tok := unsafeChars.ReplaceAllString(m, "")
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
