package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/query"
)

const defaultConcurrency = 4

// Config controls which sources a Service searches and how hard.
type Config struct {
	Accounts            []string
	Concurrency         int
	IncludeAnchorTokens bool
}

// Deps are the collaborators a Service talks to. Any of them may be nil,
// in which case the corresponding step is skipped.
type Deps struct {
	Local    LocalSource
	Mail     MailSource
	Patterns PatternStore
	Partners PartnerStore
	Builder  *query.Builder
	Scorer   *match.Scorer
}

// Service runs searches for anchors across all configured sources.
type Service struct {
	deps   Deps
	config Config
}

// NewService creates a search service.
func NewService(deps Deps, config Config) *Service {
	if deps.Scorer == nil {
		deps.Scorer = match.NewScorer(match.DefaultConfig())
	}
	if deps.Builder == nil {
		deps.Builder = query.NewBuilder(nil)
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &Service{deps: deps, config: config}
}

// Request describes one search.
type Request struct {
	// Query overrides the derived default query when set.
	Query  string       `json:"query,omitempty"`
	Anchor model.Anchor `json:"anchor"`
	// Sources restricts the search; empty means every source.
	Sources []model.SourceType `json:"sources,omitempty"`
	Limit   int                `json:"limit,omitempty"`
}

// Result is the merged, ranked outcome of a search.
type Result struct {
	Partner  *model.Partner    `json:"partner,omitempty"`
	Query    model.SearchQuery `json:"query"`
	Queries  []string          `json:"queries"`
	Ranked   []match.Ranked    `json:"ranked"`
	Accounts []AccountStatus   `json:"accounts"`
}

// Search derives the query, searches every source concurrently and ranks
// the merged candidates. A failing source is reported in Result.Accounts and
// never fails the search as a whole; only cancellation does.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	if req.Anchor.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to search for", common.ErrInvalidAnchor)
	}

	partner := s.lookupPartner(ctx, req.Anchor)
	patterns := s.lookupPatterns(ctx, req.Anchor, partner)

	result := &Result{Partner: partner}
	if q := strings.TrimSpace(req.Query); q != "" {
		result.Query = model.SearchQuery{Query: q, Source: model.QueryManual}
	} else {
		result.Query = s.deps.Builder.DefaultQuery(ctx, query.Input{
			Anchor:   req.Anchor,
			Partner:  partner,
			Patterns: patterns,
		})
	}

	if result.Query.Source == model.QueryNone {
		slog.Debug("No search query could be derived", "anchor", req.Anchor.ID)
		result.Queries = []string{}
		result.Ranked = []match.Ranked{}
		return result, nil
	}

	result.Queries = query.BuildSearchQueries(result.Query.Query, req.Anchor, s.config.IncludeAnchorTokens)

	candidates, statuses, err := s.fanOut(ctx, result.Queries, req.Sources)
	if err != nil {
		return nil, err
	}
	result.Accounts = statuses

	ranked := s.deps.Scorer.Rank(req.Anchor, candidates, match.Options{
		Partner:         partner,
		LearnedPatterns: patterns,
	})
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	result.Ranked = ranked

	return result, nil
}

type sourceResult struct {
	candidates []model.Candidate
	status     AccountStatus
}

func (s *Service) fanOut(ctx context.Context, queries []string, sources []model.SourceType) ([]model.Candidate, []AccountStatus, error) {
	var tasks []func(context.Context) sourceResult
	if wants(sources, model.SourceLocal) && s.deps.Local != nil {
		tasks = append(tasks, func(ctx context.Context) sourceResult {
			return s.searchLocal(ctx, queries)
		})
	}
	if wants(sources, model.SourceGmail) {
		for _, account := range s.config.Accounts {
			tasks = append(tasks, func(ctx context.Context) sourceResult {
				return s.searchAccount(ctx, account, queries)
			})
		}
	}

	results := make([]sourceResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = task(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var candidates []model.Candidate
	statuses := make([]AccountStatus, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, r.status)
		for _, c := range r.candidates {
			key := c.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, c)
		}
	}

	return candidates, statuses, nil
}

func (s *Service) searchLocal(ctx context.Context, queries []string) sourceResult {
	status := AccountStatus{ID: LocalAccountID, Source: model.SourceLocal, Status: StatusOK}
	var out []model.Candidate

	for _, q := range queries {
		files, err := s.deps.Local.SearchLocal(ctx, q)
		if err != nil {
			common.LogError(err, "Local search failed", common.Fields{"query": q})
			status.Status = StatusFailed
			status.Error = err.Error()
			out = nil
			break
		}
		for _, f := range files {
			out = append(out, model.NewLocalCandidate(f))
		}
	}

	status.Results = len(out)
	return sourceResult{candidates: out, status: status}
}

func (s *Service) searchAccount(ctx context.Context, account string, queries []string) sourceResult {
	status := AccountStatus{ID: account, Source: model.SourceGmail, Status: StatusOK}
	if s.deps.Mail == nil {
		status.Status = StatusSkipped
		return sourceResult{status: status}
	}

	var out []model.Candidate
	for _, q := range queries {
		emails, err := s.deps.Mail.SearchMail(ctx, account, q)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			common.LogError(err, "Mail search failed", common.Fields{"account": account, "query": q})
			status.Status = statusFor(err)
			status.Error = err.Error()
			out = nil
			break
		}
		for _, e := range emails {
			if e.IntegrationID == "" {
				e.IntegrationID = account
			}
			out = append(out, Flatten(e)...)
		}
	}

	status.Results = len(out)
	return sourceResult{candidates: out, status: status}
}

// Flatten turns an email into its own candidate followed by one candidate
// per attachment.
func Flatten(e model.Email) []model.Candidate {
	out := make([]model.Candidate, 0, 1+len(e.Attachments))
	email := e
	out = append(out, model.NewEmailCandidate(email))
	owner := &email
	for _, a := range e.Attachments {
		out = append(out, model.NewAttachmentCandidate(owner, a))
	}
	return out
}

// ConnectRequest records that the user attached a candidate to an anchor.
type ConnectRequest struct {
	Anchor    model.Anchor    `json:"anchor"`
	Candidate model.Candidate `json:"candidate"`
	Query     string          `json:"query"`
	Score     float64         `json:"score"`
}

// Connect remembers the query that found a document the user connected,
// so the next search for the same partner starts from it. Reconnecting with
// the same query and source increments its usage count.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (*model.LearnedPattern, error) {
	if s.deps.Patterns == nil {
		return nil, fmt.Errorf("%w: no pattern store", common.ErrMissingConfig)
	}
	if err := req.Candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidCandidate, err)
	}

	partnerID := req.Anchor.PartnerID
	if partnerID == "" {
		return nil, fmt.Errorf("%w: anchor has no partner", common.ErrInvalidAnchor)
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, common.ErrNoQuery
	}

	confidence := min(max(req.Score, 0), 1)

	stored, err := s.deps.Patterns.RecordPattern(ctx, &model.LearnedPattern{
		PartnerID:     partnerID,
		Pattern:       q,
		SourceType:    req.Candidate.SourceType(),
		IntegrationID: req.Candidate.IntegrationID(),
		Confidence:    confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record pattern: %w", err)
	}

	slog.Info("Learned search pattern",
		"partner", partnerID,
		"pattern", stored.Pattern,
		"source", stored.SourceType,
		"usage_count", stored.UsageCount)

	return stored, nil
}

func (s *Service) lookupPartner(ctx context.Context, anchor model.Anchor) *model.Partner {
	if anchor.PartnerID == "" || s.deps.Partners == nil {
		return nil
	}
	partner, err := s.deps.Partners.GetPartner(ctx, anchor.PartnerID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("Partner lookup failed", "partner", anchor.PartnerID, "error", err)
		}
		return nil
	}
	return partner
}

func (s *Service) lookupPatterns(ctx context.Context, anchor model.Anchor, partner *model.Partner) []model.LearnedPattern {
	if s.deps.Patterns == nil {
		return nil
	}
	partnerID := anchor.PartnerID
	if partnerID == "" && partner != nil {
		partnerID = partner.ID
	}
	if partnerID == "" {
		return nil
	}
	patterns, err := s.deps.Patterns.LearnedPatterns(ctx, partnerID)
	if err != nil {
		slog.Warn("Learned pattern lookup failed", "partner", partnerID, "error", err)
		return nil
	}
	return patterns
}

func wants(sources []model.SourceType, source model.SourceType) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}
