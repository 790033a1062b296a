package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Errors returned by the query generator.
var (
	ErrNoAPIKey      = errors.New("openai api key is required")
	ErrEmptyResponse = errors.New("empty completion response")
	ErrProvider      = errors.New("query provider error")
)

const defaultModel = openai.GPT4oMini

// Config holds the chat model settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerMinute int
}

// QueryGenerator implements query.Generator with a chat completion model.
type QueryGenerator struct {
	client  *openai.Client
	cache   *queryCache
	limiter *rateLimiter
	model   string
	timeout time.Duration
}

// NewQueryGenerator creates a generator for an OpenAI-compatible endpoint.
func NewQueryGenerator(cfg Config) (*QueryGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	return &QueryGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		cache:   newQueryCache(cfg.CacheTTL),
		limiter: newRateLimiter(cfg.RequestsPerMinute),
		model:   modelName,
		timeout: cfg.Timeout,
	}, nil
}

// GenerateQuery asks the model for a single mail search query. The answer
// is reduced to one line without quotes or labels.
func (g *QueryGenerator) GenerateQuery(ctx context.Context, anchor model.Anchor, partner *model.Partner) (string, error) {
	prompt := buildPrompt(anchor, partner)
	if q, ok := g.cache.get(prompt); ok {
		return q, nil
	}

	if err := g.limiter.wait(ctx); err != nil {
		return "", err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.1,
		MaxTokens:   40,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	q := cleanQuery(resp.Choices[0].Message.Content)
	if q == "" {
		return "", ErrEmptyResponse
	}

	slog.Debug("Generated search query",
		"query", q,
		"model", g.model,
		"duration", time.Since(start),
		"tokens", resp.Usage.TotalTokens)

	g.cache.set(prompt, q)
	return q, nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, detail, ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("completion request failed: %w: %w", ErrProvider, err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return strings.TrimSpace(parsed.Detail)
	}
	return ""
}
