// Package model defines the core data structures for the paper-trail application.
package model

import (
	"strings"
	"time"
)

// AnchorKind discriminates the two anchor variants.
type AnchorKind string

// Anchor kinds.
const (
	AnchorTransaction AnchorKind = "transaction"
	AnchorFile        AnchorKind = "file"
)

// Anchor is the transaction or file we are trying to find documents for.
// Amounts are signed integers in minor currency units (cents).
type Anchor struct {
	Date        time.Time  `json:"date,omitempty" yaml:"date,omitempty"`
	Amount      *int64     `json:"amount,omitempty" yaml:"amount,omitempty"`
	Kind        AnchorKind `json:"kind" yaml:"kind"`
	ID          string     `json:"id,omitempty" yaml:"id,omitempty"`
	Currency    string     `json:"currency,omitempty" yaml:"currency,omitempty"`
	PartnerName string     `json:"partner_name,omitempty" yaml:"partner_name,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"` // free-text name/description
	Reference   string     `json:"reference,omitempty" yaml:"reference,omitempty"`     // bank reference
	IBAN        string     `json:"iban,omitempty" yaml:"iban,omitempty"`
	PartnerID   string     `json:"partner_id,omitempty" yaml:"partner_id,omitempty"`
	Filename    string     `json:"filename,omitempty" yaml:"filename,omitempty"` // file anchors only
	Text        string     `json:"text,omitempty" yaml:"text,omitempty"`         // extracted text, file anchors only
}

// HasDate reports whether the anchor carries a usable date.
func (a Anchor) HasDate() bool {
	return !a.Date.IsZero()
}

// IsEmpty reports whether the anchor has nothing to match on.
func (a Anchor) IsEmpty() bool {
	return a.Amount == nil &&
		a.Date.IsZero() &&
		strings.TrimSpace(a.PartnerName+a.Description+a.Reference+a.IBAN+a.Filename+a.Text+a.PartnerID) == ""
}

// AbsAmount returns the absolute amount in minor units and whether one is set.
func (a Anchor) AbsAmount() (int64, bool) {
	if a.Amount == nil {
		return 0, false
	}
	if *a.Amount < 0 {
		return -*a.Amount, true
	}
	return *a.Amount, true
}

// Cents returns a pointer to the given minor-unit amount.
func Cents(v int64) *int64 {
	return &v
}
