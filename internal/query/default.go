package query

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/normalize"
)

// minSimpleQueryLength is the shortest cleaned phrase accepted as a query.
const minSimpleQueryLength = 2

// Builder derives default queries. A nil generator skips the AI step.
type Builder struct {
	generator Generator
}

// NewBuilder creates a query builder.
func NewBuilder(generator Generator) *Builder {
	return &Builder{generator: generator}
}

// DefaultQuery picks the query to run when the user has not typed one:
// the best learned pattern for the partner, else the generator's
// suggestion, else the cleaned partner phrase of the first usable anchor
// field. Generator failures fall through to the simple chain.
func (b *Builder) DefaultQuery(ctx context.Context, in Input) model.SearchQuery {
	if p := SelectPattern(in.Patterns, partnerID(in), in.Source); p != nil {
		return model.SearchQuery{Query: p.Pattern, Source: model.QueryLearned}
	}

	if b != nil && b.generator != nil {
		q, err := b.generator.GenerateQuery(ctx, in.Anchor, in.Partner)
		switch {
		case err != nil:
			slog.Debug("Query generation failed, using simple query", "error", err)
		case strings.TrimSpace(q) != "":
			return model.SearchQuery{Query: strings.TrimSpace(q), Source: model.QueryAI}
		}
	}

	if q := SimpleQuery(in.Anchor, in.Partner); q != "" {
		return model.SearchQuery{Query: q, Source: model.QuerySimple}
	}

	return model.SearchQuery{Source: model.QueryNone}
}

// SimpleQuery applies CleanPartnerPhrase to the partner display name, the
// anchor partner, description and reference, in that order, and returns the
// first result of usable length.
func SimpleQuery(anchor model.Anchor, partner *model.Partner) string {
	fields := make([]string, 0, 4)
	if partner != nil {
		fields = append(fields, partner.Name)
	}
	fields = append(fields, anchor.PartnerName, anchor.Description, anchor.Reference)

	for _, f := range fields {
		if q := normalize.CleanPartnerPhrase(f); utf8.RuneCountInString(q) >= minSimpleQueryLength {
			return q
		}
	}
	return ""
}

// SelectPattern returns the learned pattern for partnerID with the highest
// usage count, ties broken by confidence; earlier entries win full ties.
// An empty source matches any source type.
func SelectPattern(patterns []model.LearnedPattern, partnerID string, source model.SourceType) *model.LearnedPattern {
	if partnerID == "" {
		return nil
	}

	var best *model.LearnedPattern
	for i := range patterns {
		p := &patterns[i]
		if p.PartnerID != partnerID || strings.TrimSpace(p.Pattern) == "" {
			continue
		}
		if source != "" && p.SourceType != source {
			continue
		}
		if best == nil ||
			p.UsageCount > best.UsageCount ||
			(p.UsageCount == best.UsageCount && p.Confidence > best.Confidence) {
			best = p
		}
	}
	return best
}

// BuildDefaultQuery derives a default query without an AI generator.
func BuildDefaultQuery(anchor model.Anchor, partner *model.Partner, patterns []model.LearnedPattern) model.SearchQuery {
	return NewBuilder(nil).DefaultQuery(context.Background(), Input{
		Anchor:   anchor,
		Partner:  partner,
		Patterns: patterns,
	})
}

func partnerID(in Input) string {
	if in.Anchor.PartnerID != "" {
		return in.Anchor.PartnerID
	}
	if in.Partner != nil {
		return in.Partner.ID
	}
	return ""
}
