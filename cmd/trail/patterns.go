package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage learned search patterns",
		Long: `Learned patterns are the search queries that found documents you connected.
They are tried first the next time a transaction for the same partner comes in.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsRecordCmd())
	cmd.AddCommand(patternsDeleteCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			partnerID, _ := cmd.Flags().GetString("partner")

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			var patterns []model.LearnedPattern
			if partnerID != "" {
				patterns, err = store.LearnedPatterns(ctx, partnerID)
			} else {
				patterns, err = store.AllLearnedPatterns(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			return cli.RenderPatterns(cmd.OutOrStdout(), patterns)
		},
	}

	cmd.Flags().String("partner", "", "Only show patterns for this partner id")

	return cmd
}

func patternsRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record PARTNER_ID PATTERN",
		Short: "Record a search pattern for a partner",
		Long: `Record a pattern by hand. Recording the same pattern again increments its
usage count.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source, _ := cmd.Flags().GetString("source")
			account, _ := cmd.Flags().GetString("account")
			confidence, _ := cmd.Flags().GetFloat64("confidence")

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			stored, err := store.RecordPattern(ctx, &model.LearnedPattern{
				PartnerID:     args[0],
				Pattern:       args[1],
				SourceType:    model.SourceType(source),
				IntegrationID: account,
				Confidence:    confidence,
			})
			if err != nil {
				return common.NewUserError("Could not record pattern", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Pattern %d for %s used %d times", stored.ID, stored.PartnerID, stored.UsageCount)))
			return nil
		},
	}

	cmd.Flags().String("source", string(model.SourceGmail), "Source the pattern applies to (local, gmail)")
	cmd.Flags().String("account", "", "Mail account the pattern applies to")
	cmd.Flags().Float64("confidence", 0.5, "Confidence between 0 and 1")

	return cmd
}

func patternsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a learned pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("Invalid pattern id %q", args[0]), err)
			}

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeleteLearnedPattern(ctx, id); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted pattern %d", id)))
			return nil
		},
	}
}
