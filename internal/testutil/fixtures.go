package testutil

import (
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// FixtureDate is the booking date shared by the ACME fixtures.
var FixtureDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// AcmePartner is a partner that sends invoices from acme.de.
func AcmePartner() model.Partner {
	return model.Partner{
		ID:      "acme",
		Name:    "ACME GmbH",
		Aliases: []string{"ACME"},
		Domains: []string{"acme.de"},
	}
}

// AcmeTransaction is the bank debit the ACME invoice documents.
func AcmeTransaction() model.Anchor {
	return model.Anchor{
		Kind:        model.AnchorTransaction,
		ID:          "tx-acme",
		Date:        FixtureDate,
		Amount:      model.Cents(-4999),
		Currency:    "EUR",
		PartnerName: "ACME GMBH",
		Reference:   "RE-2024-00451",
		PartnerID:   "acme",
	}
}

// AcmeInvoice is the indexed invoice PDF for AcmeTransaction.
func AcmeInvoice() model.LocalFile {
	return model.LocalFile{
		Filename: "ACME_Rechnung_RE-2024-00451.pdf",
		Date:     FixtureDate.AddDate(0, 0, -2),
		Amount:   model.Cents(4999),
		Currency: "EUR",
		Partner:  "ACME GmbH",
		MimeType: "application/pdf",
		Text:     "Rechnung RE-2024-00451 Gesamtbetrag 49,99 EUR",
	}
}

// UnrelatedDocument shares nothing with the ACME fixtures except the partner
// keyword in its text.
func UnrelatedDocument() model.LocalFile {
	return model.LocalFile{
		Filename: "newsletter.html",
		Date:     FixtureDate.AddDate(0, -6, 0),
		Text:     "ACME summer newsletter",
		MimeType: "text/html",
	}
}
