// Package query derives search strings for an anchor: a single default query
// (learned pattern, AI suggestion or cleaned partner keyword) and the set of
// provider query variants used to maximise recall.
package query

import (
	"context"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Generator suggests a search query for an anchor, typically by asking an
// external AI service.
type Generator interface {
	GenerateQuery(ctx context.Context, anchor model.Anchor, partner *model.Partner) (string, error)
}

// Input carries everything DefaultQuery looks at.
type Input struct {
	Partner  *model.Partner
	Source   model.SourceType // restricts learned patterns; empty means any source
	Patterns []model.LearnedPattern
	Anchor   model.Anchor
}
