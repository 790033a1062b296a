package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup removes style and script blocks and all tags from an HTML
// fragment and collapses whitespace. Entities are decoded.
func StripMarkup(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return CollapseWhitespace(b.String())
		case html.StartTagToken:
			if isHiddenTag(z) {
				skipDepth++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if isHiddenTag(z) && skipDepth > 0 {
				skipDepth--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isHiddenTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "head", "title", "noscript":
		return true
	}
	return false
}

// CollapseWhitespace trims s and replaces internal whitespace runs with a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
