package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/query"
)

func queriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Show the search queries derived for an anchor",
		Long: `Print the default query for an anchor (learned pattern, AI suggestion or
partner keyword) and every provider query variant built from it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			anchor, err := anchorFromFlags(cmd)
			if err != nil {
				return err
			}
			base, _ := cmd.Flags().GetString("base")
			source, _ := cmd.Flags().GetString("source")
			tokens, _ := cmd.Flags().GetBool("anchor-tokens")

			cfg := currentConfig()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var partner *model.Partner
			var patterns []model.LearnedPattern
			if anchor.PartnerID != "" {
				if p, err := store.GetPartner(ctx, anchor.PartnerID); err == nil {
					partner = p
				}
				patterns, err = store.LearnedPatterns(ctx, anchor.PartnerID)
				if err != nil {
					return fmt.Errorf("failed to load learned patterns: %w", err)
				}
			}

			sq := model.SearchQuery{Query: base, Source: model.QueryManual}
			if base == "" {
				sq = newBuilder(cfg).DefaultQuery(ctx, query.Input{
					Anchor:   anchor,
					Partner:  partner,
					Patterns: patterns,
					Source:   model.SourceType(source),
				})
			}

			out := cmd.OutOrStdout()
			if sq.Source == model.QueryNone {
				fmt.Fprintln(out, cli.FormatWarning("No search query could be derived for this anchor"))
				return nil
			}

			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Default query (%s): %s", sq.Source, sq.Query)))
			for _, q := range query.BuildSearchQueries(sq.Query, anchor, tokens) {
				fmt.Fprintf(out, "  %s\n", q)
			}
			return nil
		},
	}

	addAnchorFlags(cmd)
	cmd.Flags().String("base", "", "Build variants from this query instead of deriving one")
	cmd.Flags().String("source", "", "Only consider learned patterns for this source (local, gmail)")
	cmd.Flags().Bool("anchor-tokens", false, "Include the anchor's filename, reference and amount")

	return cmd
}
