package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/api"
	"github.com/Veraticus/paper-trail/internal/match"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching engine over HTTP",
		Long: `Start the HTTP API: scoring, ranking and query endpoints, plus search and
connect against the configured document sources. Prometheus metrics are
served on /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := currentConfig()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.Server.Addr
			}
			tokens, _ := cmd.Flags().GetBool("anchor-tokens")

			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			scorer := match.NewScorer(cfg.Matching)
			builder := newBuilder(cfg)
			svc := newSearchService(cfg, store, tokens)

			slog.Info("Starting API server", "addr", addr, "database", store.Path())
			return api.NewServer(scorer, builder, svc).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	cmd.Flags().Bool("anchor-tokens", false, "Also search for anchor filename, reference and amount tokens")

	return cmd
}
