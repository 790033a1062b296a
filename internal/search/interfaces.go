// Package search orchestrates a document search for an anchor: it derives
// the query, fans out across the local index and every mail account,
// merges and deduplicates the results and returns them scored and ranked.
package search

import (
	"context"

	"github.com/Veraticus/paper-trail/internal/model"
)

// LocalSource searches the local document index.
type LocalSource interface {
	SearchLocal(ctx context.Context, query string) ([]model.LocalFile, error)
}

// MailSource searches one mail account. Implementations wrap failures in
// common.ErrAuthExpired or common.ErrSearchFailed.
type MailSource interface {
	SearchMail(ctx context.Context, accountID, query string) ([]model.Email, error)
}

// PatternStore reads and records learned search patterns.
type PatternStore interface {
	LearnedPatterns(ctx context.Context, partnerID string) ([]model.LearnedPattern, error)
	RecordPattern(ctx context.Context, pattern *model.LearnedPattern) (*model.LearnedPattern, error)
}

// PartnerStore resolves partner records.
type PartnerStore interface {
	GetPartner(ctx context.Context, id string) (*model.Partner, error)
}
