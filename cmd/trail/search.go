package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/search"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search local documents and Gmail for one anchor",
		Long: `Derive a search query for a transaction or file, search the local document
index and every configured Gmail account, and rank what comes back.`,
		Example: `  trail search --date 2024-03-01 --amount -49.99 --currency EUR --partner "ACME GmbH"
  trail search --partner-id acme --query "from:acme.de invoice" --source gmail`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			anchor, err := anchorFromFlags(cmd)
			if err != nil {
				return err
			}
			q, _ := cmd.Flags().GetString("query")
			sourceNames, _ := cmd.Flags().GetStringSlice("source")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			reasons, _ := cmd.Flags().GetBool("reasons")
			tokens, _ := cmd.Flags().GetBool("anchor-tokens")

			sources, err := parseSources(sourceNames)
			if err != nil {
				return err
			}

			cfg := currentConfig()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := newSearchService(cfg, store, tokens)
			result, err := svc.Search(ctx, search.Request{
				Query:   q,
				Anchor:  anchor,
				Sources: sources,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Query (%s): %s", result.Query.Source, result.Query.Query)))
			if len(result.Accounts) > 0 {
				if err := cli.RenderAccounts(out, result.Accounts); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return cli.RenderRanked(out, result.Ranked, reasons)
		},
	}

	addAnchorFlags(cmd)
	cmd.Flags().String("query", "", "Search with this query instead of deriving one")
	cmd.Flags().StringSlice("source", nil, "Restrict to sources (local, gmail)")
	cmd.Flags().Int("limit", 10, "Maximum number of candidates to show (0 for all)")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	cmd.Flags().Bool("reasons", false, "Show score reasons")
	cmd.Flags().Bool("anchor-tokens", false, "Also search for the anchor's filename, reference and amount")

	return cmd
}
