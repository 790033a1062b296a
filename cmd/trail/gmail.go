package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/gmail"
)

func gmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "Manage Gmail accounts used as a document source",
	}

	cmd.AddCommand(gmailAuthCmd())

	return cmd
}

func gmailAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth ACCOUNT",
		Short: "Authorize read-only access to a Gmail account",
		Long: `Authorize paper-trail to search a Gmail account.

This command will:
1. Start a local callback server
2. Print the Google consent URL
3. Store the token for ACCOUNT in the token directory

Add the account to gmail.accounts in the config file to search it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := currentConfig()
			if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" {
				return common.NewUserError(
					"Gmail credentials missing. Set gmail.client_id and gmail.client_secret or TRAIL_GMAIL_CLIENT_ID and TRAIL_GMAIL_CLIENT_SECRET",
					common.ErrMissingConfig)
			}

			callback, _ := cmd.Flags().GetString("callback")
			oauth := oauthConfig(cfg)
			oauth.CallbackAddr = callback

			account := args[0]
			slog.Info("Starting Gmail authorization", "account", account)
			if _, err := gmail.AuthenticateInteractive(cmd.Context(), oauth, account); err != nil {
				return fmt.Errorf("gmail authorization failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Authorized %s, token saved to %s", account, oauth.TokenFile(account))))
			return nil
		},
	}

	cmd.Flags().String("callback", "", "host:port for the OAuth redirect (default localhost:8085)")

	return cmd
}
