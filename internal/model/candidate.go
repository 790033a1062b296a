package model

import (
	"fmt"
	"strings"
	"time"
)

// CandidateKind discriminates the candidate variants.
type CandidateKind string

// Candidate kinds.
const (
	CandidateLocal      CandidateKind = "local"
	CandidateEmail      CandidateKind = "email"
	CandidateAttachment CandidateKind = "attachment"
)

// LocalFile is a document from the local document index.
type LocalFile struct {
	Date     time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Amount   *int64    `json:"amount,omitempty" yaml:"amount,omitempty"`
	ID       string    `json:"id" yaml:"id"`
	Filename string    `json:"filename" yaml:"filename"`
	Currency string    `json:"currency,omitempty" yaml:"currency,omitempty"`
	Partner  string    `json:"partner,omitempty" yaml:"partner,omitempty"`
	MimeType string    `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
}

// Sender is the From address of an email.
type Sender struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Email is a mail message returned by a mail account search.
type Email struct {
	Date          time.Time    `json:"date,omitempty" yaml:"date,omitempty"`
	From          Sender       `json:"from" yaml:"from"`
	ID            string       `json:"id" yaml:"id"`
	Subject       string       `json:"subject,omitempty" yaml:"subject,omitempty"`
	Snippet       string       `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	Body          string       `json:"body,omitempty" yaml:"body,omitempty"`
	IntegrationID string       `json:"integration_id,omitempty" yaml:"integration_id,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	HasPDF        bool         `json:"has_pdf,omitempty" yaml:"has_pdf,omitempty"`
	InlineInvoice bool         `json:"inline_invoice,omitempty" yaml:"inline_invoice,omitempty"`
	InvoiceLink   bool         `json:"invoice_link,omitempty" yaml:"invoice_link,omitempty"`
}

// Attachment belongs to an Email and never outlives it in a result set.
type Attachment struct {
	ID             string `json:"id" yaml:"id"`
	Filename       string `json:"filename" yaml:"filename"`
	MimeType       string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	ImportedFileID string `json:"imported_file_id,omitempty" yaml:"imported_file_id,omitempty"`
	Size           int64  `json:"size,omitempty" yaml:"size,omitempty"`
	LikelyReceipt  bool   `json:"likely_receipt,omitempty" yaml:"likely_receipt,omitempty"`
}

// Candidate is a document being evaluated against an anchor. Exactly one
// variant is populated according to Kind; attachment candidates also carry
// their owning Email.
type Candidate struct {
	Local      *LocalFile    `json:"local,omitempty" yaml:"local,omitempty"`
	Email      *Email        `json:"email,omitempty" yaml:"email,omitempty"`
	Attachment *Attachment   `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Kind       CandidateKind `json:"kind" yaml:"kind"`
}

// NewLocalCandidate wraps a local file.
func NewLocalCandidate(f LocalFile) Candidate {
	return Candidate{Kind: CandidateLocal, Local: &f}
}

// NewEmailCandidate wraps an email.
func NewEmailCandidate(e Email) Candidate {
	return Candidate{Kind: CandidateEmail, Email: &e}
}

// NewAttachmentCandidate wraps an attachment together with its owning email.
func NewAttachmentCandidate(owner *Email, a Attachment) Candidate {
	return Candidate{Kind: CandidateAttachment, Email: owner, Attachment: &a}
}

// Validate checks that the populated variant matches Kind.
func (c Candidate) Validate() error {
	switch c.Kind {
	case CandidateLocal:
		if c.Local == nil {
			return fmt.Errorf("local candidate without file")
		}
	case CandidateEmail:
		if c.Email == nil {
			return fmt.Errorf("email candidate without message")
		}
	case CandidateAttachment:
		if c.Attachment == nil || c.Email == nil {
			return fmt.Errorf("attachment candidate requires attachment and owning email")
		}
	default:
		return fmt.Errorf("unknown candidate kind %q", c.Kind)
	}
	return nil
}

// IsEmpty reports whether the candidate carries no usable variant.
func (c Candidate) IsEmpty() bool {
	return c.Validate() != nil
}

// Key returns the stable deduplication key: file id, message id, or
// message id and attachment id joined by a slash.
func (c Candidate) Key() string {
	switch c.Kind {
	case CandidateLocal:
		if c.Local != nil {
			return c.Local.ID
		}
	case CandidateEmail:
		if c.Email != nil {
			return c.Email.ID
		}
	case CandidateAttachment:
		if c.Email != nil && c.Attachment != nil {
			return c.Email.ID + "/" + c.Attachment.ID
		}
	}
	return ""
}

// Filename returns the candidate filename, empty for plain emails.
func (c Candidate) Filename() string {
	switch {
	case c.Kind == CandidateLocal && c.Local != nil:
		return c.Local.Filename
	case c.Kind == CandidateAttachment && c.Attachment != nil:
		return c.Attachment.Filename
	}
	return ""
}

// Subject returns the subject of the email (or owning email).
func (c Candidate) Subject() string {
	if c.Kind == CandidateLocal || c.Email == nil {
		return ""
	}
	return c.Email.Subject
}

// FullText returns subject, snippet, sender and body for mail candidates and
// partner plus extracted text for local files.
func (c Candidate) FullText() string {
	if c.Kind == CandidateLocal {
		if c.Local == nil {
			return ""
		}
		return joinNonEmpty(c.Local.Partner, c.Local.Text)
	}
	if c.Email == nil {
		return ""
	}
	e := c.Email
	return joinNonEmpty(e.Subject, e.Snippet, e.From.Name, e.From.Address, e.Body)
}

// SearchText returns the full text combined with the filename.
func (c Candidate) SearchText() string {
	return joinNonEmpty(c.FullText(), c.Filename())
}

// SenderAddress returns the From address for mail candidates.
func (c Candidate) SenderAddress() string {
	if c.Kind == CandidateLocal || c.Email == nil {
		return ""
	}
	return c.Email.From.Address
}

// Date returns the document date, zero when unknown.
func (c Candidate) Date() time.Time {
	if c.Kind == CandidateLocal {
		if c.Local == nil {
			return time.Time{}
		}
		return c.Local.Date
	}
	if c.Email == nil {
		return time.Time{}
	}
	return c.Email.Date
}

// Currency returns the extracted currency for local files.
func (c Candidate) Currency() string {
	if c.Kind == CandidateLocal && c.Local != nil {
		return c.Local.Currency
	}
	return ""
}

// IntegrationID returns the mail account the candidate came from.
func (c Candidate) IntegrationID() string {
	if c.Kind == CandidateLocal || c.Email == nil {
		return ""
	}
	return c.Email.IntegrationID
}

// SourceType returns where the candidate was found.
func (c Candidate) SourceType() SourceType {
	if c.Kind == CandidateLocal {
		return SourceLocal
	}
	return SourceGmail
}

// LikelyReceipt reports the ingestion layer's receipt/invoice classification.
func (c Candidate) LikelyReceipt() bool {
	switch c.Kind {
	case CandidateAttachment:
		return c.Attachment != nil && c.Attachment.LikelyReceipt
	case CandidateEmail:
		return c.Email != nil && (c.Email.HasPDF || c.Email.InlineInvoice || c.Email.InvoiceLink)
	}
	return false
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
