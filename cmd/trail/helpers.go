package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/config"
	"github.com/Veraticus/paper-trail/internal/gmail"
	"github.com/Veraticus/paper-trail/internal/llm"
	"github.com/Veraticus/paper-trail/internal/match"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/ofx"
	"github.com/Veraticus/paper-trail/internal/query"
	"github.com/Veraticus/paper-trail/internal/search"
	"github.com/Veraticus/paper-trail/internal/storage"
)

const (
	queryCacheTTL     = time.Hour
	requestsPerMinute = 30
)

// currentConfig returns the loaded config, or the defaults when a command
// runs without the root pre-run (tests).
func currentConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	cfg := config.DefaultConfig()
	return &cfg
}

// openStorage opens and migrates the database. The cleanup func closes it.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, func(), error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(cfg.Database.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
	return store, cleanup, nil
}

// newBuilder returns a query builder, with AI suggestions when an API key is
// configured.
func newBuilder(cfg *config.Config) *query.Builder {
	gen, err := llm.NewQueryGenerator(llm.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Model:             cfg.OpenAI.Model,
		Timeout:           cfg.OpenAI.Timeout,
		CacheTTL:          queryCacheTTL,
		RequestsPerMinute: requestsPerMinute,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrNoAPIKey) {
			slog.Warn("AI query suggestions disabled", "error", err)
		}
		return query.NewBuilder(nil)
	}
	return query.NewBuilder(gen)
}

func oauthConfig(cfg *config.Config) gmail.OAuth2Config {
	return gmail.OAuth2Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		TokenDir:     cfg.Gmail.TokenDir,
	}
}

// newMailSource returns the Gmail client, or nil when Gmail is not configured.
func newMailSource(cfg *config.Config) search.MailSource {
	if !cfg.Gmail.Enabled() {
		slog.Debug("Gmail search disabled: no client credentials or accounts configured")
		return nil
	}
	return gmail.NewClient(gmail.Config{
		MaxResults: cfg.Gmail.MaxResults,
		Retry:      cfg.Retry,
	}, gmail.OAuthServices(oauthConfig(cfg)))
}

// newSearchService wires every configured source around store.
func newSearchService(cfg *config.Config, store *storage.SQLiteStorage, includeAnchorTokens bool) *search.Service {
	deps := search.Deps{
		Local:    store,
		Patterns: store,
		Partners: store,
		Builder:  newBuilder(cfg),
		Scorer:   match.NewScorer(cfg.Matching),
	}
	var accounts []string
	if mail := newMailSource(cfg); mail != nil {
		deps.Mail = mail
		accounts = cfg.Gmail.Accounts
	}
	return search.NewService(deps, search.Config{
		Accounts:            accounts,
		Concurrency:         cfg.Gmail.Concurrency,
		IncludeAnchorTokens: includeAnchorTokens,
	})
}

// parseAmount turns a decimal amount such as "-49.99" into minor units.
func parseAmount(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	r, ok := new(big.Rat).SetString(strings.ReplaceAll(s, ",", "."))
	if !ok {
		return nil, common.NewUserError(fmt.Sprintf("Invalid amount %q", s), common.ErrInvalidAnchor)
	}
	return model.Cents(ofx.MinorUnits(r)), nil
}

// parseDate accepts an empty string or YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return t, nil
}

// parseSources maps --source values onto source types.
func parseSources(names []string) ([]model.SourceType, error) {
	var sources []model.SourceType
	for _, n := range names {
		switch st := model.SourceType(strings.ToLower(strings.TrimSpace(n))); st {
		case model.SourceLocal, model.SourceGmail:
			sources = append(sources, st)
		case "":
		default:
			return nil, common.NewUserError(fmt.Sprintf("Unknown source %q, expected local or gmail", n), common.ErrInvalidConfig)
		}
	}
	return sources, nil
}
