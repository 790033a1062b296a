// Package storage provides the data persistence layer for paper-trail.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidPattern  = errors.New("invalid learned pattern")
	ErrInvalidPartner  = errors.New("invalid partner")
	ErrInvalidDocument = errors.New("invalid document")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validatePattern(p *model.LearnedPattern) error {
	if p == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if strings.TrimSpace(p.PartnerID) == "" {
		return fmt.Errorf("%w: missing partner ID", ErrInvalidPattern)
	}
	if strings.TrimSpace(p.Pattern) == "" {
		return fmt.Errorf("%w: missing pattern text", ErrInvalidPattern)
	}
	switch p.SourceType {
	case model.SourceLocal, model.SourceGmail:
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidPattern, p.SourceType)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f outside [0, 1]", ErrInvalidPattern, p.Confidence)
	}
	return nil
}

func validatePartner(p *model.Partner) error {
	if p == nil {
		return fmt.Errorf("%w: partner", ErrNilParameter)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPartner)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPartner)
	}
	for _, d := range p.Domains {
		if normalizeDomain(d) == "" || strings.ContainsAny(d, " @/") {
			return fmt.Errorf("%w: bad domain %q", ErrInvalidPartner, d)
		}
	}
	return nil
}

func validateDocument(d *model.LocalFile) error {
	if d == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if strings.TrimSpace(d.Filename) == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidDocument)
	}
	return nil
}
