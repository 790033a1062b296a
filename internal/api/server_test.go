package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/search"
)

var anchorDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func amazonAnchor() model.Anchor {
	return model.Anchor{
		Kind:        model.AnchorTransaction,
		ID:          "tx-1",
		Date:        anchorDate,
		Amount:      model.Cents(-4999),
		Currency:    "EUR",
		PartnerName: "Amazon EU S.a.r.l.",
		Description: "AMAZON PAYMENTS",
		PartnerID:   "p-amazon",
	}
}

func invoiceFile() model.LocalFile {
	return model.LocalFile{
		ID:       "file-1",
		Filename: "Amazon_Invoice_4999.pdf",
		Text:     "Invoice total 49.99 EUR",
		Currency: "EUR",
		Date:     anchorDate,
	}
}

type stubLocal struct {
	files []model.LocalFile
}

func (s *stubLocal) SearchLocal(_ context.Context, _ string) ([]model.LocalFile, error) {
	return s.files, nil
}

type stubPatterns struct {
	recorded []model.LearnedPattern
}

func (s *stubPatterns) LearnedPatterns(_ context.Context, _ string) ([]model.LearnedPattern, error) {
	return s.recorded, nil
}

func (s *stubPatterns) RecordPattern(_ context.Context, p *model.LearnedPattern) (*model.LearnedPattern, error) {
	stored := *p
	stored.ID = int64(len(s.recorded) + 1)
	stored.UsageCount = 1
	s.recorded = append(s.recorded, stored)
	return &stored, nil
}

func newTestServer(t *testing.T, searcher *search.Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(nil, nil, searcher).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestScoreEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/score", scoreRequest{
		Anchor:    amazonAnchor(),
		Candidate: model.NewLocalCandidate(invoiceFile()),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	result := decode[model.ScoreResult](t, resp)
	assert.InDelta(t, 0.75, result.Score, 1e-9)
	assert.Equal(t, model.LabelStrong, result.Label)
	assert.Contains(t, result.Reasons, "Amount 49.99 found")

	requests := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/score", "200"))
	assert.GreaterOrEqual(t, requests, 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(candidatesScored.WithLabelValues("Strong")), 1.0)
}

func TestScoreEndpoint_EmptyInputsScoreZero(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/score", scoreRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[model.ScoreResult](t, resp)
	assert.Zero(t, result.Score)
	assert.Empty(t, result.Reasons)
}

func TestScoreEndpoint_Signals(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/score", scoreRequest{
		Anchor:    amazonAnchor(),
		Candidate: model.NewLocalCandidate(invoiceFile()),
		Signals:   []string{"amount"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[model.ScoreResult](t, resp)
	assert.InDelta(t, 0.20, result.Score, 1e-9)

	resp = postJSON(t, srv.URL+"/v1/score", scoreRequest{Signals: []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "validation_failed", body.Code)
}

func TestScoreEndpoint_BadJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/score", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "bad_request", body.Code)
}

func TestRankEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	weak := model.LocalFile{ID: "file-2", Filename: "holiday.jpg", Date: anchorDate}
	resp := postJSON(t, srv.URL+"/v1/rank", rankRequest{
		Anchor: amazonAnchor(),
		Candidates: []model.Candidate{
			model.NewLocalCandidate(weak),
			model.NewLocalCandidate(invoiceFile()),
		},
		Limit: 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[rankResponse](t, resp)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Ranked, 1)
	assert.Equal(t, "file-1", body.Ranked[0].Candidate.Key())
	assert.Equal(t, model.LabelStrong, body.Ranked[0].Result.Label)
}

func TestRankEndpoint_NegativeLimit(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/rank", rankRequest{Limit: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDefaultQueryEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/queries/default", defaultQueryRequest{
		Anchor: model.Anchor{Kind: model.AnchorTransaction, PartnerName: "PP*SPOTIFY"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.SearchQuery{Query: "SPOTIFY", Source: model.QuerySimple}, decode[model.SearchQuery](t, resp))

	resp = postJSON(t, srv.URL+"/v1/queries/default", defaultQueryRequest{
		Anchor: model.Anchor{Kind: model.AnchorTransaction, PartnerID: "p-acme", PartnerName: "Acme"},
		LearnedPatterns: []model.LearnedPattern{
			{PartnerID: "p-acme", Pattern: "from:acme.de", SourceType: model.SourceGmail, UsageCount: 2},
		},
		Source: model.SourceGmail,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.SearchQuery{Query: "from:acme.de", Source: model.QueryLearned}, decode[model.SearchQuery](t, resp))
}

func TestVariantsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/queries/variants", variantsRequest{Base: "acme.de"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"acme.de", "from:acme.de"}, decode[variantsResponse](t, resp).Queries)

	resp = postJSON(t, srv.URL+"/v1/queries/variants", variantsRequest{Base: "  "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{}, decode[variantsResponse](t, resp).Queries)
}

func TestSearchEndpoint(t *testing.T) {
	svc := search.NewService(search.Deps{
		Local:    &stubLocal{files: []model.LocalFile{invoiceFile()}},
		Patterns: &stubPatterns{},
	}, search.Config{})
	srv := newTestServer(t, svc)

	resp := postJSON(t, srv.URL+"/v1/search", search.Request{Anchor: amazonAnchor()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[search.Result](t, resp)
	assert.Equal(t, model.QuerySimple, result.Query.Source)
	require.Len(t, result.Ranked, 1)
	assert.Equal(t, "file-1", result.Ranked[0].Candidate.Key())
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, search.StatusOK, result.Accounts[0].Status)

	resp = postJSON(t, srv.URL+"/v1/search", search.Request{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_anchor", decode[errorResponse](t, resp).Code)
}

func TestConnectEndpoint(t *testing.T) {
	patterns := &stubPatterns{}
	svc := search.NewService(search.Deps{Patterns: patterns}, search.Config{})
	srv := newTestServer(t, svc)

	resp := postJSON(t, srv.URL+"/v1/connect", search.ConnectRequest{
		Anchor:    amazonAnchor(),
		Candidate: model.NewLocalCandidate(invoiceFile()),
		Query:     "amazon invoice",
		Score:     0.75,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	stored := decode[model.LearnedPattern](t, resp)
	assert.Equal(t, "p-amazon", stored.PartnerID)
	assert.Equal(t, model.SourceLocal, stored.SourceType)
	require.Len(t, patterns.recorded, 1)

	resp = postJSON(t, srv.URL+"/v1/connect", search.ConnectRequest{
		Anchor:    amazonAnchor(),
		Candidate: model.NewLocalCandidate(invoiceFile()),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no_query", decode[errorResponse](t, resp).Code)
}

func TestSearchRoutesNeedService(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/search", search.Request{Anchor: amazonAnchor()})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "trail_http_requests_total")
}

func TestRoutePatternUnknown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	assert.Equal(t, "unknown", routePattern(req))
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := jsonRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}

func TestScorerIsShared(t *testing.T) {
	cfg := match.DefaultConfig()
	cfg.Weights.Amount = 0.5
	s := NewServer(match.NewScorer(cfg), nil, nil)
	assert.InDelta(t, 0.5, s.scorer.Config().Weights.Amount, 1e-9)
}
