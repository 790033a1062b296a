package api

import (
	"net/http"

	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/query"
	"github.com/Veraticus/paper-trail/internal/search"
)

type scoreRequest struct {
	Partner         *model.Partner         `json:"partner,omitempty"`
	Anchor          model.Anchor           `json:"anchor"`
	Candidate       model.Candidate        `json:"candidate"`
	LearnedPatterns []model.LearnedPattern `json:"learned_patterns,omitempty"`
	Signals         []string               `json:"signals,omitempty"`
}

type rankRequest struct {
	Partner         *model.Partner         `json:"partner,omitempty"`
	Anchor          model.Anchor           `json:"anchor"`
	Candidates      []model.Candidate      `json:"candidates"`
	LearnedPatterns []model.LearnedPattern `json:"learned_patterns,omitempty"`
	Signals         []string               `json:"signals,omitempty"`
	Limit           int                    `json:"limit,omitempty"`
}

type rankResponse struct {
	Ranked []match.Ranked `json:"ranked"`
	Total  int            `json:"total"`
}

type defaultQueryRequest struct {
	Partner         *model.Partner         `json:"partner,omitempty"`
	Anchor          model.Anchor           `json:"anchor"`
	Source          model.SourceType       `json:"source,omitempty"`
	LearnedPatterns []model.LearnedPattern `json:"learned_patterns,omitempty"`
}

type variantsRequest struct {
	Base                string       `json:"base"`
	Anchor              model.Anchor `json:"anchor"`
	IncludeAnchorTokens bool         `json:"include_anchor_tokens,omitempty"`
}

type variantsResponse struct {
	Queries []string `json:"queries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScore handles POST /v1/score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	signals, err := match.ParseSignals(req.Signals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result := s.scorer.Score(req.Anchor, req.Candidate, match.Options{
		Partner:         req.Partner,
		LearnedPatterns: req.LearnedPatterns,
		Signals:         signals,
	})
	observeScore(result)

	writeJSON(w, http.StatusOK, result)
}

// handleRank handles POST /v1/rank.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "limit must not be negative")
		return
	}

	signals, err := match.ParseSignals(req.Signals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	ranked := s.scorer.Rank(req.Anchor, req.Candidates, match.Options{
		Partner:         req.Partner,
		LearnedPatterns: req.LearnedPatterns,
		Signals:         signals,
	})
	for _, rk := range ranked {
		observeScore(rk.Result)
	}

	total := len(ranked)
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	writeJSON(w, http.StatusOK, rankResponse{Ranked: ranked, Total: total})
}

// handleDefaultQuery handles POST /v1/queries/default.
func (s *Server) handleDefaultQuery(w http.ResponseWriter, r *http.Request) {
	var req defaultQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q := s.builder.DefaultQuery(r.Context(), query.Input{
		Anchor:   req.Anchor,
		Partner:  req.Partner,
		Patterns: req.LearnedPatterns,
		Source:   req.Source,
	})

	writeJSON(w, http.StatusOK, q)
}

// handleVariants handles POST /v1/queries/variants.
func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	var req variantsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	queries := query.BuildSearchQueries(req.Base, req.Anchor, req.IncludeAnchorTokens)
	if queries == nil {
		queries = []string{}
	}

	writeJSON(w, http.StatusOK, variantsResponse{Queries: queries})
}

// handleSearch handles POST /v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	observeAccounts(result.Accounts)
	for _, rk := range result.Ranked {
		observeScore(rk.Result)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleConnect handles POST /v1/connect.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req search.ConnectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pattern, err := s.searcher.Connect(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, pattern)
}
