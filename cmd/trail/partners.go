package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func partnersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "partners",
		Aliases: []string{"partner"},
		Short:   "Manage known counterparties",
		Long: `Partners are the counterparties behind transactions. Their mail domains let
searches ask for mail from the right sender.`,
	}

	cmd.AddCommand(partnersAddCmd())
	cmd.AddCommand(partnersListCmd())

	return cmd
}

func partnersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add ID NAME",
		Short:   "Add or update a partner",
		Example: `  trail partners add acme "ACME GmbH" --domain acme.de --alias ACME`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			domains, _ := cmd.Flags().GetStringSlice("domain")
			aliases, _ := cmd.Flags().GetStringSlice("alias")

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			partner := &model.Partner{
				ID:      args[0],
				Name:    args[1],
				Aliases: aliases,
				Domains: domains,
			}
			if err := store.SavePartner(ctx, partner); err != nil {
				return common.NewUserError("Could not save partner", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved partner %s", partner.ID)))
			return nil
		},
	}

	cmd.Flags().StringSlice("domain", nil, "Mail domain the partner sends from (repeatable)")
	cmd.Flags().StringSlice("alias", nil, "Alternative name (repeatable)")

	return cmd
}

func partnersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List partners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			partners, err := store.ListPartners(ctx)
			if err != nil {
				return fmt.Errorf("failed to list partners: %w", err)
			}
			return cli.RenderPartners(cmd.OutOrStdout(), partners)
		},
	}
}
