package gmail

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/normalize"
)

// maxBodyLength bounds the body text kept per message.
const maxBodyLength = 16 * 1024

var (
	invoiceLink = regexp.MustCompile(`(?i)https?://[^\s"'<>]*(?:invoice|rechnung|receipt|beleg|billing|faktura)[^\s"'<>]*`)
	moneyAmount = regexp.MustCompile(`\d+[.,]\d{2}\b`)
)

// ConvertMessage turns a fetched Gmail message into a model.Email.
func ConvertMessage(msg *gmailapi.Message, account string) (model.Email, error) {
	if msg == nil || msg.Id == "" {
		return model.Email{}, fmt.Errorf("message without id")
	}

	email := model.Email{
		ID:            msg.Id,
		Snippet:       normalize.CollapseWhitespace(msg.Snippet),
		IntegrationID: account,
	}
	if msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate).UTC()
	}

	if msg.Payload == nil {
		return email, nil
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			email.From = parseSender(h.Value)
		case "subject":
			email.Subject = strings.TrimSpace(h.Value)
		case "date":
			if email.Date.IsZero() {
				if d, err := mail.ParseDate(h.Value); err == nil {
					email.Date = d.UTC()
				}
			}
		}
	}

	var plain, html []string
	walkParts(msg.Payload, func(p *gmailapi.MessagePart) {
		if p.Filename != "" && p.Body != nil && p.Body.AttachmentId != "" {
			email.Attachments = append(email.Attachments, convertAttachment(p))
			return
		}
		if p.Body == nil || p.Body.Data == "" {
			return
		}
		text, err := decodeBody(p.Body.Data)
		if err != nil {
			return
		}
		switch strings.ToLower(p.MimeType) {
		case "text/plain":
			plain = append(plain, text)
		case "text/html":
			html = append(html, text)
		}
	})

	rawHTML := strings.Join(html, "\n")
	switch {
	case len(plain) > 0:
		email.Body = normalize.CollapseWhitespace(strings.Join(plain, "\n"))
	case rawHTML != "":
		email.Body = normalize.StripMarkup(rawHTML)
	}
	if len(email.Body) > maxBodyLength {
		email.Body = truncate(email.Body, maxBodyLength)
	}

	for _, a := range email.Attachments {
		if isPDF(a.MimeType, a.Filename) {
			email.HasPDF = true
		}
	}
	email.InvoiceLink = invoiceLink.MatchString(rawHTML) || invoiceLink.MatchString(email.Body)
	if _, ok := normalize.FindAny(email.Subject+" "+email.Body, normalize.ReceiptKeywords); ok {
		email.InlineInvoice = moneyAmount.MatchString(email.Body)
	}

	return email, nil
}

func walkParts(p *gmailapi.MessagePart, visit func(*gmailapi.MessagePart)) {
	if p == nil {
		return
	}
	visit(p)
	for _, child := range p.Parts {
		walkParts(child, visit)
	}
}

func convertAttachment(p *gmailapi.MessagePart) model.Attachment {
	a := model.Attachment{
		ID:       p.Body.AttachmentId,
		Filename: p.Filename,
		MimeType: strings.ToLower(p.MimeType),
		Size:     p.Body.Size,
	}
	_, keyword := normalize.FindAny(a.Filename, normalize.ReceiptKeywords)
	a.LikelyReceipt = isPDF(a.MimeType, a.Filename) || keyword
	return a
}

func isPDF(mimeType, filename string) bool {
	return strings.EqualFold(mimeType, "application/pdf") || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func parseSender(raw string) model.Sender {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return model.Sender{Address: strings.Trim(strings.TrimSpace(raw), "<>")}
	}
	return model.Sender{Address: strings.ToLower(addr.Address), Name: addr.Name}
}

// decodeBody decodes Gmail's URL-safe base64, with or without padding.
func decodeBody(data string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", err
		}
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
