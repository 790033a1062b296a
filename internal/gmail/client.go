// Package gmail searches Gmail accounts for candidate documents.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

const (
	defaultMaxResults = 25
	currentUser       = "me"
)

// ServiceFactory builds an authorized Gmail service for one account.
type ServiceFactory func(ctx context.Context, account string) (*gmailapi.Service, error)

// OAuthServices returns a factory that authorizes with the stored token
// for each account.
func OAuthServices(config OAuth2Config) ServiceFactory {
	return func(ctx context.Context, account string) (*gmailapi.Service, error) {
		ts, err := TokenSource(ctx, config, account)
		if err != nil {
			return nil, err
		}
		srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
		if err != nil {
			return nil, fmt.Errorf("unable to create gmail service: %w", err)
		}
		return srv, nil
	}
}

// Config controls search size and retries.
type Config struct {
	MaxResults int64
	Retry      common.RetryOptions
}

// Client implements search.MailSource over the Gmail API.
type Client struct {
	newService ServiceFactory
	services   map[string]*gmailapi.Service
	config     Config
	mu         sync.Mutex
}

// NewClient creates a Gmail client.
func NewClient(config Config, factory ServiceFactory) *Client {
	if config.MaxResults <= 0 {
		config.MaxResults = defaultMaxResults
	}
	return &Client{
		newService: factory,
		services:   make(map[string]*gmailapi.Service),
		config:     config,
	}
}

func (c *Client) service(ctx context.Context, account string) (*gmailapi.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if srv, ok := c.services[account]; ok {
		return srv, nil
	}
	srv, err := c.newService(ctx, account)
	if err != nil {
		return nil, err
	}
	c.services[account] = srv
	return srv, nil
}

// SearchMail runs a Gmail query for account and returns the matching
// messages with their attachments. Errors wrap common.ErrAuthExpired when
// the account must be re-authorized and common.ErrSearchFailed otherwise.
func (c *Client) SearchMail(ctx context.Context, account, query string) ([]model.Email, error) {
	srv, err := c.service(ctx, account)
	if err != nil {
		return nil, unwrapClassified(classifyError(err))
	}

	var ids []string
	err = common.WithRetry(ctx, func() error {
		resp, err := srv.Users.Messages.List(currentUser).
			Q(query).
			MaxResults(c.config.MaxResults).
			Context(ctx).
			Do()
		if err != nil {
			return classifyError(err)
		}
		ids = ids[:0]
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	}, c.config.Retry)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", account, err)
	}

	slog.Debug("Gmail search", "account", account, "query", query, "messages", len(ids))

	emails := make([]model.Email, 0, len(ids))
	for _, id := range ids {
		var msg *gmailapi.Message
		err := common.WithRetry(ctx, func() error {
			m, err := srv.Users.Messages.Get(currentUser, id).Format("full").Context(ctx).Do()
			if err != nil {
				return classifyError(err)
			}
			msg = m
			return nil
		}, c.config.Retry)
		if err != nil {
			return nil, fmt.Errorf("get message %s for %s: %w", id, account, err)
		}

		email, err := ConvertMessage(msg, account)
		if err != nil {
			slog.Warn("Skipping unreadable message", "account", account, "id", id, "error", err)
			continue
		}
		emails = append(emails, email)
	}

	return emails, nil
}

func unwrapClassified(err error) error {
	if re, ok := err.(*common.RetryableError); ok {
		return re.Err
	}
	return err
}
