package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/query"
)

type mockLocal struct {
	err       error
	queryErrs map[string]error
	files     map[string][]model.LocalFile
	queries []string
	mu      sync.Mutex
}

func (m *mockLocal) SearchLocal(_ context.Context, q string) ([]model.LocalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	if err := m.queryErrs[q]; err != nil {
		return nil, err
	}
	return m.files[q], nil
}

type mockMail struct {
	errs      map[string]error
	queryErrs map[string]error
	emails    map[string][]model.Email // keyed by account
	queries   map[string][]string
	mu        sync.Mutex
}

func (m *mockMail) SearchMail(_ context.Context, account, q string) ([]model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queries == nil {
		m.queries = make(map[string][]string)
	}
	m.queries[account] = append(m.queries[account], q)
	if err := m.errs[account]; err != nil {
		return nil, err
	}
	if err := m.queryErrs[q]; err != nil {
		return nil, err
	}
	return m.emails[account], nil
}

type mockPatterns struct {
	patterns []model.LearnedPattern
	recorded []model.LearnedPattern
}

func (m *mockPatterns) LearnedPatterns(_ context.Context, partnerID string) ([]model.LearnedPattern, error) {
	var out []model.LearnedPattern
	for _, p := range m.patterns {
		if p.PartnerID == partnerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPatterns) RecordPattern(_ context.Context, p *model.LearnedPattern) (*model.LearnedPattern, error) {
	stored := *p
	stored.UsageCount = 1
	for _, r := range m.recorded {
		if r.PartnerID == p.PartnerID && r.Pattern == p.Pattern && r.SourceType == p.SourceType {
			stored.UsageCount++
		}
	}
	m.recorded = append(m.recorded, stored)
	return &stored, nil
}

type mockPartners map[string]*model.Partner

func (m mockPartners) GetPartner(_ context.Context, id string) (*model.Partner, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("partner %s: %w", id, common.ErrNotFound)
}

var anchorDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func acmeAnchor() model.Anchor {
	return model.Anchor{
		Kind:        model.AnchorTransaction,
		ID:          "txn-1",
		Date:        anchorDate,
		Amount:      model.Cents(-12000),
		Currency:    "EUR",
		PartnerID:   "acme",
		PartnerName: "ACME GmbH",
	}
}

func acmePartner() *model.Partner {
	return &model.Partner{ID: "acme", Name: "Acme", Domains: []string{"acme.de"}}
}

func TestSearch_MergesSourcesAndRanks(t *testing.T) {
	local := &mockLocal{files: map[string][]model.LocalFile{
		"acme.de": {{ID: "f1", Filename: "acme_rechnung.pdf", Date: anchorDate, Amount: model.Cents(12000), Currency: "EUR"}},
	}}
	mail := &mockMail{emails: map[string][]model.Email{
		"work": {{
			ID:      "m1",
			Date:    anchorDate.AddDate(0, 0, 1),
			From:    model.Sender{Address: "billing@acme.de", Name: "Acme"},
			Subject: "Ihre Rechnung",
			HasPDF:  true,
			Attachments: []model.Attachment{
				{ID: "a1", Filename: "Rechnung_120.pdf", LikelyReceipt: true},
			},
		}},
		"home": {{ID: "m9", Date: anchorDate, Subject: "Newsletter", From: model.Sender{Address: "news@example.org"}}},
	}}
	patterns := &mockPatterns{patterns: []model.LearnedPattern{
		{PartnerID: "acme", Pattern: "acme.de", SourceType: model.SourceGmail, IntegrationID: "work", UsageCount: 2},
	}}

	svc := NewService(Deps{
		Local:    local,
		Mail:     mail,
		Patterns: patterns,
		Partners: mockPartners{"acme": acmePartner()},
	}, Config{Accounts: []string{"work", "home"}, Concurrency: 2})

	res, err := svc.Search(context.Background(), Request{Anchor: acmeAnchor()})
	require.NoError(t, err)

	assert.Equal(t, model.SearchQuery{Query: "acme.de", Source: model.QueryLearned}, res.Query)
	assert.Equal(t, []string{"acme.de", "from:acme.de"}, res.Queries)
	require.NotNil(t, res.Partner)

	require.Len(t, res.Accounts, 3)
	assert.Equal(t, LocalAccountID, res.Accounts[0].ID)
	assert.Equal(t, "work", res.Accounts[1].ID)
	assert.Equal(t, "home", res.Accounts[2].ID)
	for _, a := range res.Accounts {
		assert.Equal(t, StatusOK, a.Status, a.ID)
	}

	keys := make([]string, len(res.Ranked))
	for i, r := range res.Ranked {
		keys[i] = r.Candidate.Key()
	}
	// m1 and m9 were returned for both queries but appear once each.
	assert.ElementsMatch(t, []string{"f1", "m1", "m1/a1", "m9"}, keys)
	assert.Equal(t, "m9", keys[len(keys)-1], "unrelated mail ranks last")

	for i := 1; i < len(res.Ranked); i++ {
		assert.GreaterOrEqual(t, res.Ranked[i-1].Result.Score, res.Ranked[i].Result.Score)
	}
}

func TestSearch_AccountFailuresAreIsolated(t *testing.T) {
	mail := &mockMail{
		errs: map[string]error{
			"expired": fmt.Errorf("%w: token revoked", common.ErrAuthExpired),
			"broken":  fmt.Errorf("%w: 500", common.ErrSearchFailed),
		},
		emails: map[string][]model.Email{
			"ok": {{ID: "m1", Date: anchorDate, Subject: "Rechnung", From: model.Sender{Address: "billing@acme.de"}}},
		},
	}

	svc := NewService(Deps{Mail: mail}, Config{Accounts: []string{"expired", "ok", "broken"}})

	res, err := svc.Search(context.Background(), Request{
		Anchor:  acmeAnchor(),
		Query:   "acme",
		Sources: []model.SourceType{model.SourceGmail},
	})
	require.NoError(t, err)

	assert.Equal(t, model.QueryManual, res.Query.Source)
	require.Len(t, res.Accounts, 3)
	assert.Equal(t, StatusAuthExpired, res.Accounts[0].Status)
	assert.Contains(t, res.Accounts[0].Error, "token revoked")
	assert.Equal(t, StatusOK, res.Accounts[1].Status)
	assert.Equal(t, 1, res.Accounts[1].Results)
	assert.Equal(t, StatusFailed, res.Accounts[2].Status)

	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "m1", res.Ranked[0].Candidate.Key())
	assert.Equal(t, "ok", res.Ranked[0].Candidate.IntegrationID())

	assert.Len(t, mail.queries["expired"], 1, "failed account stops after first error")
}

func TestSearch_LaterVariantFailureDropsAccountResults(t *testing.T) {
	mail := &mockMail{
		queryErrs: map[string]error{
			"from:acme.de": fmt.Errorf("%w: 500", common.ErrSearchFailed),
		},
		emails: map[string][]model.Email{
			"me": {{ID: "m1", Date: anchorDate, Subject: "Rechnung", From: model.Sender{Address: "billing@acme.de"}}},
		},
	}
	local := &mockLocal{
		queryErrs: map[string]error{"from:acme.de": errors.New("disk gone")},
		files: map[string][]model.LocalFile{
			"acme.de": {{ID: "f1", Filename: "acme.pdf", Date: anchorDate}},
		},
	}

	svc := NewService(Deps{Local: local, Mail: mail}, Config{Accounts: []string{"me"}})

	res, err := svc.Search(context.Background(), Request{Anchor: acmeAnchor(), Query: "acme.de"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.de", "from:acme.de"}, res.Queries)
	require.Len(t, res.Accounts, 2)
	for _, a := range res.Accounts {
		assert.Equal(t, StatusFailed, a.Status, a.ID)
		assert.Zero(t, a.Results, a.ID)
	}
	assert.Empty(t, res.Ranked)
	assert.Equal(t, []string{"acme.de", "from:acme.de"}, mail.queries["me"])
}

func TestSearch_LocalFailureReported(t *testing.T) {
	svc := NewService(Deps{Local: &mockLocal{err: errors.New("disk gone")}}, Config{})

	res, err := svc.Search(context.Background(), Request{Anchor: acmeAnchor(), Query: "acme"})
	require.NoError(t, err)
	require.Len(t, res.Accounts, 1)
	assert.Equal(t, StatusFailed, res.Accounts[0].Status)
	assert.Empty(t, res.Ranked)
}

func TestSearch_NoQuery(t *testing.T) {
	local := &mockLocal{}
	svc := NewService(Deps{Local: local}, Config{})

	res, err := svc.Search(context.Background(), Request{Anchor: model.Anchor{
		Kind:   model.AnchorTransaction,
		Amount: model.Cents(500),
	}})
	require.NoError(t, err)
	assert.Equal(t, model.QueryNone, res.Query.Source)
	assert.Empty(t, res.Ranked)
	assert.Empty(t, local.queries, "no source is searched without a query")
}

func TestSearch_EmptyAnchor(t *testing.T) {
	svc := NewService(Deps{}, Config{})
	_, err := svc.Search(context.Background(), Request{})
	assert.ErrorIs(t, err, common.ErrInvalidAnchor)
}

func TestSearch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(Deps{Local: &mockLocal{}}, Config{})
	_, err := svc.Search(ctx, Request{Anchor: acmeAnchor(), Query: "acme"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_Limit(t *testing.T) {
	local := &mockLocal{files: map[string][]model.LocalFile{
		"acme": {{ID: "a", Filename: "a.pdf"}, {ID: "b", Filename: "b.pdf"}, {ID: "c", Filename: "c.pdf"}},
	}}
	svc := NewService(Deps{Local: local, Builder: query.NewBuilder(nil)}, Config{})

	res, err := svc.Search(context.Background(), Request{Anchor: acmeAnchor(), Query: "acme", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Ranked, 2)
}

func TestFlatten(t *testing.T) {
	e := model.Email{ID: "m1", Attachments: []model.Attachment{{ID: "a1"}, {ID: "a2"}}}
	got := Flatten(e)
	require.Len(t, got, 3)
	assert.Equal(t, model.CandidateEmail, got[0].Kind)
	assert.Equal(t, "m1/a1", got[1].Key())
	assert.Equal(t, "m1/a2", got[2].Key())
	assert.Same(t, got[1].Email, got[2].Email)
}

func TestConnect(t *testing.T) {
	patterns := &mockPatterns{}
	svc := NewService(Deps{Patterns: patterns}, Config{})

	email := model.Email{ID: "m1", IntegrationID: "work"}
	req := ConnectRequest{
		Anchor:    acmeAnchor(),
		Candidate: model.NewEmailCandidate(email),
		Query:     " acme.de ",
		Score:     1.4,
	}

	first, err := svc.Connect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "acme.de", first.Pattern)
	assert.Equal(t, model.SourceGmail, first.SourceType)
	assert.Equal(t, "work", first.IntegrationID)
	assert.InDelta(t, 1.0, first.Confidence, 1e-9)

	second, err := svc.Connect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.UsageCount)
}

func TestConnect_Errors(t *testing.T) {
	svc := NewService(Deps{Patterns: &mockPatterns{}}, Config{})
	local := model.NewLocalCandidate(model.LocalFile{ID: "f1", Filename: "a.pdf"})

	_, err := svc.Connect(context.Background(), ConnectRequest{Anchor: model.Anchor{Kind: model.AnchorFile}, Candidate: local, Query: "x"})
	assert.ErrorIs(t, err, common.ErrInvalidAnchor)

	_, err = svc.Connect(context.Background(), ConnectRequest{Anchor: acmeAnchor(), Candidate: local})
	assert.ErrorIs(t, err, common.ErrNoQuery)

	_, err = svc.Connect(context.Background(), ConnectRequest{Anchor: acmeAnchor(), Query: "x"})
	assert.ErrorIs(t, err, common.ErrInvalidCandidate)

	_, err = NewService(Deps{}, Config{}).Connect(context.Background(), ConnectRequest{Anchor: acmeAnchor(), Candidate: local, Query: "x"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
