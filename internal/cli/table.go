package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/search"
)

const maxTitleWidth = 48

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderRanked writes one row per ranked candidate. With reasons set, each
// row is followed by the candidate's score reasons.
func RenderRanked(w io.Writer, ranked []match.Ranked, reasons bool) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No candidates found."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tSCORE\tLABEL\tKIND\tDATE\tDOCUMENT\tFROM")
	for i, r := range ranked {
		c := r.Candidate
		label := string(r.Result.Label)
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "%d\t%d%%\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			r.Result.Percent(),
			label,
			KindIcon(c.Kind)+" "+string(c.Kind),
			formatDate(c.Date()),
			truncate(Title(c), maxTitleWidth),
			c.SenderAddress())
		if reasons {
			for _, reason := range r.Result.Reasons {
				fmt.Fprintf(tw, "\t\t\t\t\t  %s\t\n", reason)
			}
		}
	}
	return tw.Flush()
}

// RenderAccounts writes the per-source search outcomes.
func RenderAccounts(w io.Writer, accounts []search.AccountStatus) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SOURCE\tACCOUNT\tSTATUS\tRESULTS\tERROR")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", a.Source, a.ID, a.Status, a.Results, a.Error)
	}
	return tw.Flush()
}

// RenderPatterns writes learned patterns.
func RenderPatterns(w io.Writer, patterns []model.LearnedPattern) error {
	if len(patterns) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No learned patterns."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPARTNER\tSOURCE\tACCOUNT\tUSES\tCONFIDENCE\tPATTERN")
	for _, p := range patterns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\t%s\n",
			p.ID, p.PartnerID, p.SourceType, p.IntegrationID, p.UsageCount, p.Confidence, p.Pattern)
	}
	return tw.Flush()
}

// RenderPartners writes partners with their known domains.
func RenderPartners(w io.Writer, partners []model.Partner) error {
	if len(partners) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No partners."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tALIASES\tDOMAINS")
	for _, p := range partners {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.ID, p.Name, strings.Join(p.Aliases, ", "), strings.Join(p.Domains, ", "))
	}
	return tw.Flush()
}

// RenderDocuments writes indexed local documents.
func RenderDocuments(w io.Writer, docs []model.LocalFile) error {
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No documents."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tPARTNER\tFILENAME")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, formatDate(d.Date), FormatAmount(d.Amount, d.Currency), d.Partner, d.Filename)
	}
	return tw.Flush()
}

// Title is the one-line description of a candidate.
func Title(c model.Candidate) string {
	switch c.Kind {
	case model.CandidateLocal, model.CandidateAttachment:
		return c.Filename()
	}
	if s := c.Subject(); s != "" {
		return s
	}
	return c.Key()
}

// FormatAmount renders minor units as a decimal amount with currency.
func FormatAmount(amount *int64, currency string) string {
	if amount == nil {
		return "-"
	}
	v := *amount
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
