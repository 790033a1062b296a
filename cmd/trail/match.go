package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/ofx"
	"github.com/Veraticus/paper-trail/internal/search"
)

type searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Connect(ctx context.Context, req search.ConnectRequest) (*model.LearnedPattern, error)
}

type partnerFinder interface {
	FindPartnerByDomain(ctx context.Context, domain string) (*model.Partner, error)
}

// matchOutcome is the best candidate found for one anchor.
type matchOutcome struct {
	best      *match.Ranked
	anchor    model.Anchor
	connected bool
}

// batchMatcher searches every anchor of a statement in turn.
type batchMatcher struct {
	svc         searcher
	partners    partnerFinder
	input       *cli.NonBlockingReader
	out         io.Writer
	sources     []model.SourceType
	done        atomic.Int64
	limit       int
	autoApply   float64
	interactive bool
}

func (m *batchMatcher) run(ctx context.Context, anchors []model.Anchor, progress *cli.Progress) ([]matchOutcome, error) {
	outcomes := make([]matchOutcome, 0, len(anchors))
	for _, anchor := range anchors {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}

		outcome, err := m.matchOne(ctx, anchor)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, cli.ErrInputCancelled) {
				return outcomes, context.Canceled
			}
			slog.Warn("Failed to match transaction", "id", anchor.ID, "error", err)
		}
		outcomes = append(outcomes, outcome)
		m.done.Add(1)
		if progress != nil {
			progress.Increment()
		}
	}
	return outcomes, nil
}

func (m *batchMatcher) matchOne(ctx context.Context, anchor model.Anchor) (matchOutcome, error) {
	outcome := matchOutcome{anchor: anchor}

	result, err := m.svc.Search(ctx, search.Request{
		Anchor:  anchor,
		Sources: m.sources,
		Limit:   m.limit,
	})
	if err != nil {
		return outcome, err
	}
	if len(result.Ranked) == 0 {
		return outcome, nil
	}
	outcome.best = &result.Ranked[0]

	if !m.interactive {
		return outcome, nil
	}

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, cli.FormatTitle(describeAnchor(anchor)))
	if err := cli.RenderRanked(m.out, result.Ranked, false); err != nil {
		return outcome, err
	}

	choice, err := cli.ChooseCandidate(ctx, m.input, m.out, len(result.Ranked))
	if err != nil {
		if errors.Is(err, io.EOF) {
			m.interactive = false
			return outcome, nil
		}
		return outcome, err
	}
	if choice < 0 {
		return outcome, nil
	}

	chosen := result.Ranked[choice]
	outcome.best = &chosen
	outcome.connected = true

	if anchor.PartnerID == "" {
		id, err := m.partnerFor(ctx, chosen)
		if err != nil {
			if errors.Is(err, io.EOF) {
				m.interactive = false
				return outcome, nil
			}
			return outcome, err
		}
		anchor.PartnerID = id
	}
	if anchor.PartnerID == "" {
		fmt.Fprintln(m.out, cli.FormatWarning("Connected, but no partner is known for this transaction so nothing was learned"))
		return outcome, nil
	}

	pattern, err := m.svc.Connect(ctx, search.ConnectRequest{
		Anchor:    anchor,
		Candidate: chosen.Candidate,
		Query:     result.Query.Query,
		Score:     chosen.Result.Score,
	})
	if err != nil {
		return outcome, err
	}
	fmt.Fprintln(m.out, cli.FormatSuccess(fmt.Sprintf("Learned %q for %s (used %d times)", pattern.Pattern, pattern.PartnerID, pattern.UsageCount)))
	return outcome, nil
}

// partnerFor resolves the partner of a connected mail candidate from its
// sender domain. The partner is applied without asking when the candidate
// scored at least the auto-apply threshold.
func (m *batchMatcher) partnerFor(ctx context.Context, chosen match.Ranked) (string, error) {
	if m.partners == nil {
		return "", nil
	}
	domain := match.SenderDomain(chosen.Candidate.SenderAddress())
	if domain == "" {
		return "", nil
	}
	p, err := m.partners.FindPartnerByDomain(ctx, domain)
	if err != nil || p == nil {
		slog.Debug("No partner for sender domain", "domain", domain, "error", err)
		return "", nil
	}

	if chosen.Result.Score >= m.autoApply {
		slog.Debug("Applied partner from sender domain", "partner", p.ID, "score", chosen.Result.Score)
		return p.ID, nil
	}
	ok, err := cli.Confirm(ctx, m.input, m.out, fmt.Sprintf("Use %s (%s) as the partner?", p.Name, domain))
	if err != nil || !ok {
		return "", err
	}
	return p.ID, nil
}

func describeAnchor(a model.Anchor) string {
	name := a.PartnerName
	if name == "" {
		name = a.Description
	}
	return fmt.Sprintf("%s  %s  %s", formatAnchorDate(a), cli.FormatAmount(a.Amount, a.Currency), name)
}

func formatAnchorDate(a model.Anchor) string {
	if !a.HasDate() {
		return "-"
	}
	return a.Date.Format("2006-01-02")
}

func renderOutcomes(w io.Writer, outcomes []matchOutcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tPARTNER\tSCORE\tLABEL\tDOCUMENT")
	found := 0
	for _, o := range outcomes {
		score, label, doc := "-", "-", "-"
		if o.best != nil {
			found++
			score = fmt.Sprintf("%d%%", o.best.Result.Percent())
			if o.best.Result.Label != model.LabelNone {
				label = string(o.best.Result.Label)
			}
			doc = cli.Title(o.best.Candidate)
			if o.connected {
				doc = cli.SuccessIcon + " " + doc
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatAnchorDate(o.anchor), cli.FormatAmount(o.anchor.Amount, o.anchor.Currency),
			o.anchor.PartnerName, score, label, doc)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf("Found candidates for %d of %d transactions", found, len(outcomes))))
	return err
}

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find documents for every transaction in an OFX statement",
		Long: `Parse an OFX/QFX statement and search for the invoice or receipt behind each
transaction. With --interactive you pick the right document and the query that
found it is learned for the partner.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ofxPath, _ := cmd.Flags().GetString("ofx")
			interactive, _ := cmd.Flags().GetBool("interactive")
			sourceNames, _ := cmd.Flags().GetStringSlice("source")
			limit, _ := cmd.Flags().GetInt("limit")

			sources, err := parseSources(sourceNames)
			if err != nil {
				return err
			}

			f, err := os.Open(ofxPath) //nolint:gosec // user-supplied statement path
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer func() { _ = f.Close() }()

			anchors, err := ofx.NewParser().ParseFile(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(anchors) == 0 {
				slog.Info("No transactions in statement", "file", ofxPath)
				return nil
			}

			cfg := currentConfig()
			store, cleanup, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			m := &batchMatcher{
				svc:         newSearchService(cfg, store, false),
				partners:    store,
				input:       cli.NewNonBlockingReader(cmd.InOrStdin()),
				out:         out,
				sources:     sources,
				limit:       limit,
				autoApply:   cfg.Matching.PartnerAutoApply,
				interactive: interactive,
			}

			handler := cli.NewInterruptHandler(out)
			ctx := handler.HandleInterrupts(cmd.Context(), func() (int, int) {
				return int(m.done.Load()), len(anchors)
			})

			var progress *cli.Progress
			if !interactive {
				progress = cli.NewProgress(cmd.ErrOrStderr(), len(anchors), "Matching")
			}

			outcomes, err := m.run(ctx, anchors, progress)
			if progress != nil && err == nil {
				progress.Finish()
			}
			if renderErr := renderOutcomes(out, outcomes); renderErr != nil {
				return renderErr
			}
			if handler.WasInterrupted() {
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("ofx", "", "OFX/QFX statement to match")
	cmd.Flags().Bool("interactive", false, "Choose and connect documents one transaction at a time")
	cmd.Flags().StringSlice("source", nil, "Restrict to sources (local, gmail)")
	cmd.Flags().Int("limit", 5, "Candidates to consider per transaction")
	_ = cmd.MarkFlagRequired("ofx")

	return cmd
}
