package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/normalize"
)

const systemPrompt = `You write Gmail search queries that find the invoice or receipt for a bank transaction.
Answer with exactly one query on one line. Prefer the sender domain with from: when you know it,
otherwise the merchant's name. Never explain.`

func buildPrompt(anchor model.Anchor, partner *model.Partner) string {
	var b strings.Builder
	line := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}

	line("Kind", string(anchor.Kind))
	if anchor.HasDate() {
		line("Date", anchor.Date.Format("2006-01-02"))
	}
	if abs, ok := anchor.AbsAmount(); ok {
		line("Amount", strings.TrimSpace(normalize.FormatAmount(abs)+" "+anchor.Currency))
	}
	line("Counterparty", anchor.PartnerName)
	line("Description", anchor.Description)
	line("Reference", anchor.Reference)
	line("Filename", anchor.Filename)
	if partner != nil {
		line("Known partner", partner.Name)
		line("Aliases", strings.Join(partner.Aliases, ", "))
		line("Known domains", strings.Join(partner.Domains, ", "))
	}
	return b.String()
}

var answerPrefixes = []string{"query:", "search:", "gmail query:"}

// cleanQuery keeps the first non-empty line, drops labels, backticks and
// surrounding quotes.
func cleanQuery(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`"))
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, p := range answerPrefixes {
			if strings.HasPrefix(lower, p) {
				line = strings.TrimSpace(line[len(p):])
				break
			}
		}
		line = strings.Trim(line, `"'`)
		return normalize.CollapseWhitespace(line)
	}
	return ""
}
