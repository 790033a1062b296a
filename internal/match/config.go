// Package match scores candidate documents against an anchor and ranks them.
//
// A score is a sum of independent weighted signals (receipt prior, keyword
// hits, amount, partner, reference, sender domain, learned pattern) scaled by
// a global date-proximity multiplier and capped. Every point of a score is
// traceable to a reason string.
//
// Example usage:
//
//	scorer := match.NewScorer(match.DefaultConfig())
//	result := scorer.Score(anchor, candidate, match.Options{Partner: partner})
//	if result.Label == model.LabelStrong {
//		// auto-suggest
//	}
package match

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Veraticus/paper-trail/internal/normalize"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid matching configuration")

// Weights are the additive contributions of each signal.
type Weights struct {
	TypePrior       float64 `mapstructure:"type_prior" json:"type_prior"`
	FilenameKeyword float64 `mapstructure:"filename_keyword" json:"filename_keyword"`
	SubjectKeyword  float64 `mapstructure:"subject_keyword" json:"subject_keyword"`
	TextKeyword     float64 `mapstructure:"text_keyword" json:"text_keyword"`
	Amount          float64 `mapstructure:"amount" json:"amount"`
	Partner         float64 `mapstructure:"partner" json:"partner"`
	Reference       float64 `mapstructure:"reference" json:"reference"`
	SenderDomain    float64 `mapstructure:"sender_domain" json:"sender_domain"`
	Learned         float64 `mapstructure:"learned" json:"learned"`
}

// DecayBand applies Multiplier to candidates at most MaxDays from the anchor.
type DecayBand struct {
	MaxDays    int     `mapstructure:"max_days" json:"max_days"`
	Multiplier float64 `mapstructure:"multiplier" json:"multiplier"`
}

// Config holds the tunable matching policy.
type Config struct {
	Keywords        []string    `mapstructure:"keywords" json:"keywords"`
	DecayBands      []DecayBand `mapstructure:"decay_bands" json:"decay_bands"`
	Weights         Weights     `mapstructure:"weights" json:"weights"`
	DecayFloor      float64     `mapstructure:"decay_floor" json:"decay_floor"`
	ScoreCap        float64     `mapstructure:"score_cap" json:"score_cap"`
	StrongThreshold float64     `mapstructure:"strong_threshold" json:"strong_threshold"`
	LikelyThreshold float64     `mapstructure:"likely_threshold" json:"likely_threshold"`
	// PartnerAutoApply is the confidence at which a partner suggestion is
	// applied without asking.
	PartnerAutoApply float64 `mapstructure:"partner_auto_apply" json:"partner_auto_apply"`
}

// DefaultConfig returns the default weights and decay bands.
func DefaultConfig() Config {
	return Config{
		Keywords: slices.Clone(normalize.ReceiptKeywords),
		Weights: Weights{
			TypePrior:       0.15,
			FilenameKeyword: 0.25,
			SubjectKeyword:  0.15,
			TextKeyword:     0.10,
			Amount:          0.20,
			Partner:         0.10,
			Reference:       0.10,
			SenderDomain:    0.20,
			Learned:         0.10,
		},
		DecayBands: []DecayBand{
			{MaxDays: 7, Multiplier: 1.0},
			{MaxDays: 14, Multiplier: 0.9},
			{MaxDays: 30, Multiplier: 0.8},
			{MaxDays: 60, Multiplier: 0.65},
			{MaxDays: 90, Multiplier: 0.5},
			{MaxDays: 180, Multiplier: 0.35},
		},
		DecayFloor:       0.25,
		ScoreCap:         0.95,
		StrongThreshold:  0.75,
		LikelyThreshold:  0.40,
		PartnerAutoApply: 0.89,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"type_prior":       w.TypePrior,
		"filename_keyword": w.FilenameKeyword,
		"subject_keyword":  w.SubjectKeyword,
		"text_keyword":     w.TextKeyword,
		"amount":           w.Amount,
		"partner":          w.Partner,
		"reference":        w.Reference,
		"sender_domain":    w.SenderDomain,
		"learned":          w.Learned,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative", ErrInvalidConfig, name)
		}
	}

	if c.ScoreCap <= 0 || c.ScoreCap > 1 {
		return fmt.Errorf("%w: score cap must be in (0, 1]", ErrInvalidConfig)
	}
	if c.LikelyThreshold < 0 || c.StrongThreshold < c.LikelyThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= likely <= strong", ErrInvalidConfig)
	}
	if c.DecayFloor < 0 || c.DecayFloor > 1 {
		return fmt.Errorf("%w: decay floor must be in [0, 1]", ErrInvalidConfig)
	}

	prev := DecayBand{MaxDays: -1, Multiplier: 1}
	for i, b := range c.DecayBands {
		if b.MaxDays <= prev.MaxDays {
			return fmt.Errorf("%w: decay band %d is not in ascending day order", ErrInvalidConfig, i)
		}
		if b.Multiplier > prev.Multiplier || b.Multiplier < 0 {
			return fmt.Errorf("%w: decay band %d increases the multiplier", ErrInvalidConfig, i)
		}
		prev = b
	}
	if c.DecayFloor > prev.Multiplier {
		return fmt.Errorf("%w: decay floor exceeds the last band", ErrInvalidConfig)
	}

	return nil
}

// DecayMultiplier returns the date-proximity factor for a distance in days.
// It is non-increasing in days.
func (c Config) DecayMultiplier(days float64) float64 {
	if days < 0 {
		days = -days
	}
	for _, b := range c.DecayBands {
		if days <= float64(b.MaxDays) {
			return b.Multiplier
		}
	}
	return c.DecayFloor
}
