package model

import "time"

// SourceType identifies which candidate source a search ran against.
type SourceType string

// Source types.
const (
	SourceLocal SourceType = "local"
	SourceGmail SourceType = "gmail"
)

// LearnedPattern remembers a search string that previously led the user to
// connect a document for a partner.
type LearnedPattern struct {
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PartnerID     string     `json:"partner_id" yaml:"partner_id"`
	Pattern       string     `json:"pattern" yaml:"pattern"`
	SourceType    SourceType `json:"source_type" yaml:"source_type"`
	IntegrationID string     `json:"integration_id,omitempty" yaml:"integration_id,omitempty"`
	ID            int64      `json:"id"`
	UsageCount    int        `json:"usage_count" yaml:"usage_count"`
	Confidence    float64    `json:"confidence" yaml:"confidence"`
}
