package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrFetchFailed is returned when the token endpoint answers with a
// non-2xx status.
var ErrFetchFailed = errors.New("oauth token fetch failed")

// ConfigMissingError lists the credential or configuration fields an
// authentication transport required but found empty.
type ConfigMissingError struct {
	Fields []string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("auth config missing fields: %s", strings.Join(e.Fields, ", "))
}

// OAuthConfig holds the static half of an OAuth authorization-code setup.
type OAuthConfig struct {
	TokenURL          string
	ClientID          string
	ClientSecret      string
	AuthorizationCode string
	RedirectURL       string
}

// Tokens is the mutable half: the current access/refresh token pair and
// the access token expiry as epoch milliseconds.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiration   int64
}

// OAuthTransport implements http.RoundTripper. It maintains the token pair
// behind a mutex so concurrent requests trigger a single token fetch, and
// attaches a Bearer header to every outgoing request.
type OAuthTransport struct {
	Config    OAuthConfig
	Transport http.RoundTripper
	Logger    *slog.Logger

	mu     sync.Mutex
	tokens Tokens
	now    func() time.Time
}

// NewOAuthTransport creates an OAuthTransport. Previously stored tokens may
// be seeded to skip the initial authorization-code exchange.
func NewOAuthTransport(config OAuthConfig, tokens Tokens, transport http.RoundTripper, logger *slog.Logger) *OAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OAuthTransport{
		Config:    config,
		Transport: transport,
		Logger:    logger,
		tokens:    tokens,
		now:       time.Now,
	}
}

// Tokens returns a copy of the current token state, for callers that
// persist it between runs.
func (t *OAuthTransport) Tokens() Tokens {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens
}

// RoundTrip attaches a valid access token and delegates to the underlying
// transport.
func (t *OAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.accessToken(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return t.Transport.RoundTrip(req)
}

// accessToken returns a valid access token, fetching or refreshing under
// the single-flight mutex when needed.
func (t *OAuthTransport) accessToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.tokens.RefreshToken == "":
		t.Logger.Debug("fetching initial oauth tokens", "token_url", t.Config.TokenURL)
		if err := t.fetchInitial(ctx); err != nil {
			return "", err
		}
	case t.tokens.AccessToken == "" || t.now().UnixMilli() > t.tokens.Expiration:
		t.Logger.Debug("refreshing oauth access token", "token_url", t.Config.TokenURL)
		if err := t.refresh(ctx); err != nil {
			return "", err
		}
	}
	return t.tokens.AccessToken, nil
}

func (t *OAuthTransport) fetchInitial(ctx context.Context) error {
	missing := missingFields(map[string]string{
		"TokenURL":          t.Config.TokenURL,
		"ClientID":          t.Config.ClientID,
		"ClientSecret":      t.Config.ClientSecret,
		"AuthorizationCode": t.Config.AuthorizationCode,
		"RedirectURL":       t.Config.RedirectURL,
	})
	if len(missing) > 0 {
		return &ConfigMissingError{Fields: missing}
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {t.Config.AuthorizationCode},
		"redirect_uri":  {t.Config.RedirectURL},
		"client_id":     {t.Config.ClientID},
		"client_secret": {t.Config.ClientSecret},
	}
	return t.postTokenRequest(ctx, form)
}

func (t *OAuthTransport) refresh(ctx context.Context) error {
	missing := missingFields(map[string]string{
		"TokenURL":     t.Config.TokenURL,
		"ClientID":     t.Config.ClientID,
		"ClientSecret": t.Config.ClientSecret,
		"RefreshToken": t.tokens.RefreshToken,
	})
	if len(missing) > 0 {
		return &ConfigMissingError{Fields: missing}
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {t.tokens.RefreshToken},
		"client_id":     {t.Config.ClientID},
		"client_secret": {t.Config.ClientSecret},
	}
	return t.postTokenRequest(ctx, form)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// postTokenRequest POSTs the form to the token endpoint through the
// underlying transport and stores the returned tokens. A refresh response
// that omits refresh_token keeps the current one.
func (t *OAuthTransport) postTokenRequest(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Transport: t.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	t.tokens.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		t.tokens.RefreshToken = tokens.RefreshToken
	}
	t.tokens.Expiration = t.now().UnixMilli() + tokens.ExpiresIn*1000
	t.Logger.Debug("stored oauth tokens", "expiration", t.tokens.Expiration)
	return nil
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for _, name := range []string{"TokenURL", "ClientID", "ClientSecret", "AuthorizationCode", "RedirectURL", "RefreshToken"} {
		if value, ok := fields[name]; ok && value == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
