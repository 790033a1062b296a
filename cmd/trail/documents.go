package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cli"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage the local document index",
	}

	cmd.AddCommand(documentsAddCmd())
	cmd.AddCommand(documentsSearchCmd())
	cmd.AddCommand(documentsDeleteCmd())

	return cmd
}

func documentsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Index a local invoice or receipt",
		Long: `Add a document to the local index with whatever was extracted from it.
Text files are indexed with their contents unless --text is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flag := func(name string) string {
				v, _ := cmd.Flags().GetString(name)
				return strings.TrimSpace(v)
			}

			date, err := parseDate(flag("date"))
			if err != nil {
				return err
			}
			amount, err := parseAmount(flag("amount"))
			if err != nil {
				return err
			}

			path := args[0]
			doc := &model.LocalFile{
				Filename: filepath.Base(path),
				Date:     date,
				Amount:   amount,
				Currency: strings.ToUpper(flag("currency")),
				Partner:  flag("partner"),
				MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
				Text:     flag("text"),
			}
			if doc.Text == "" && isTextFile(path, doc.MimeType) {
				data, err := os.ReadFile(path) //nolint:gosec // user-supplied document path
				if err != nil {
					return fmt.Errorf("failed to read document: %w", err)
				}
				doc.Text = string(data)
			}

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.SaveDocument(ctx, doc); err != nil {
				return common.NewUserError("Could not index document", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Indexed %s as %s", doc.Filename, doc.ID)))
			return nil
		},
	}

	cmd.Flags().String("date", "", "Document date (YYYY-MM-DD)")
	cmd.Flags().String("amount", "", "Extracted total, e.g. 49.99")
	cmd.Flags().String("currency", "", "ISO currency code")
	cmd.Flags().String("partner", "", "Extracted partner name")
	cmd.Flags().String("text", "", "Extracted text")

	return cmd
}

func isTextFile(path, mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".csv", ".eml":
		return true
	}
	return false
}

func documentsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the local document index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := store.SearchLocal(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("failed to search documents: %w", err)
			}
			return cli.RenderDocuments(cmd.OutOrStdout(), docs)
		},
	}
}

func documentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, cleanup, err := openStorage(ctx, currentConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeleteDocument(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted document %s", args[0])))
			return nil
		},
	}
}
