package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/model"
)

func addAnchorFlags(cmd *cobra.Command) {
	cmd.Flags().String("id", "", "Anchor id")
	cmd.Flags().String("file", "", "Treat the anchor as a file with this filename")
	cmd.Flags().String("date", "", "Booking or document date (YYYY-MM-DD)")
	cmd.Flags().String("amount", "", "Signed amount, e.g. -49.99")
	cmd.Flags().String("currency", "", "ISO currency code")
	cmd.Flags().String("partner", "", "Counterparty name")
	cmd.Flags().String("partner-id", "", "Known partner id")
	cmd.Flags().String("description", "", "Transaction description")
	cmd.Flags().String("reference", "", "Bank reference")
	cmd.Flags().String("iban", "", "Counterparty IBAN")
	cmd.Flags().String("text", "", "Extracted text of the file anchor")
}

func anchorFromFlags(cmd *cobra.Command) (model.Anchor, error) {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}

	date, err := parseDate(flag("date"))
	if err != nil {
		return model.Anchor{}, err
	}
	amount, err := parseAmount(flag("amount"))
	if err != nil {
		return model.Anchor{}, err
	}

	anchor := model.Anchor{
		Kind:        model.AnchorTransaction,
		ID:          flag("id"),
		Date:        date,
		Amount:      amount,
		Currency:    strings.ToUpper(flag("currency")),
		PartnerName: flag("partner"),
		PartnerID:   flag("partner-id"),
		Description: flag("description"),
		Reference:   flag("reference"),
		IBAN:        flag("iban"),
	}
	if filename := flag("file"); filename != "" {
		anchor.Kind = model.AnchorFile
		anchor.Filename = filename
		anchor.Text = flag("text")
	}
	return anchor, nil
}
