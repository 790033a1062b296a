package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/Veraticus/paper-trail/internal/common"
)

const defaultCallbackAddr = "localhost:8085"

var unsafeAccountChars = regexp.MustCompile(`[^A-Za-z0-9@._-]`)

// OAuth2Config holds OAuth2 configuration.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenDir     string // One token file per account is kept here
	CallbackAddr string // host:port for the interactive redirect
}

func (c OAuth2Config) oauthConfig() *oauth2.Config {
	addr := c.CallbackAddr
	if addr == "" {
		addr = defaultCallbackAddr
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + addr + "/callback",
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
}

// TokenFile returns where the token for account is stored.
func (c OAuth2Config) TokenFile(account string) string {
	return filepath.Join(c.TokenDir, unsafeAccountChars.ReplaceAllString(account, "_")+".json")
}

// AuthenticateInteractive performs the OAuth2 flow in the browser and stores
// the resulting token for account.
func AuthenticateInteractive(ctx context.Context, config OAuth2Config, account string) (*oauth2.Token, error) {
	oauthConfig := config.oauthConfig()
	addr := config.CallbackAddr
	if addr == "" {
		addr = defaultCallbackAddr
	}

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errorChan <- fmt.Errorf("no authorization code received")
			_, _ = fmt.Fprintf(w, `<html><body>
				<h1>Authentication Failed</h1>
				<p>No authorization code received. Please try again.</p>
			</body></html>`)
			return
		}

		codeChan <- code
		_, _ = fmt.Fprintf(w, `<html><body>
			<h1>Authentication Successful!</h1>
			<p>You can close this window and return to the terminal.</p>
			<script>window.setTimeout(function(){window.close();}, 3000);</script>
		</body></html>`)
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errorChan <- fmt.Errorf("failed to start callback server: %w", err)
		}
	}()

	authURL := oauthConfig.AuthCodeURL("state-"+account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	slog.Info("Gmail authentication required", "account", account)
	slog.Info("Please visit this URL to authenticate", "url", authURL)
	slog.Info("Waiting for authentication...")

	var authCode string
	select {
	case authCode = <-codeChan:
		slog.Info("Received authorization code")
	case err := <-errorChan:
		_ = server.Shutdown(ctx)
		return nil, err
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		_ = server.Shutdown(ctx)
		return nil, fmt.Errorf("authentication timeout - no response received within 5 minutes")
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("Error shutting down callback server", "error", err)
	}

	token, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	tokenFile := config.TokenFile(account)
	if err := saveToken(tokenFile, token); err != nil {
		return nil, err
	}
	slog.Info("Token saved successfully", "file", tokenFile)

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// saveToken saves a token to file.
func saveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// TokenSource returns a refreshing token source for account. A missing or
// unreadable token file means the account must be re-authorized.
func TokenSource(ctx context.Context, config OAuth2Config, account string) (oauth2.TokenSource, error) {
	tokenFile := config.TokenFile(account)
	token, err := LoadToken(tokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token for account %s, run `trail gmail auth %s`", common.ErrAuthExpired, account, account)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: token for account %s unreadable: %w", common.ErrAuthExpired, account, err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("%w: token for account %s expired without refresh token", common.ErrAuthExpired, account)
	}

	base := config.oauthConfig().TokenSource(ctx, token)
	return &savingTokenSource{base: base, path: tokenFile, last: token.AccessToken}, nil
}

// savingTokenSource persists refreshed tokens so the next run reuses them.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	last string
	mu   sync.Mutex
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		slog.Debug("Token refreshed", "file", s.path)
		if err := saveToken(s.path, token); err != nil {
			slog.Warn("Failed to save refreshed token", "error", err)
		}
		s.last = token.AccessToken
	}
	return token, nil
}
