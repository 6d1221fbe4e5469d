package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Default configuration values.
const (
	// DefaultTokenPath is the identity endpoint suffix appended to the
	// base URL.
	DefaultTokenPath = "/identity/connect/token"

	// DefaultSafetyMargin is subtracted from the advertised token
	// lifetime so a token is never used right as it expires mid-flight.
	DefaultSafetyMargin = 30 * time.Second

	// DefaultTimeout bounds the identity request when no HTTP client is
	// supplied.
	DefaultTimeout = 30 * time.Second
)

// ClientCredentials acquires bearer tokens via the OAuth2
// client-credentials grant and caches them until near expiry.
//
// The cached token is the only mutable state; reads take a shared lock
// and refreshes are coalesced through a singleflight group, so any
// number of concurrent callers produce at most one identity request.
// Safe for concurrent use.
type ClientCredentials struct {
	baseURL      string
	tokenPath    string
	clientID     string
	clientSecret string
	safetyMargin time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time

	group  singleflight.Group
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// Option configures a ClientCredentials provider.
type Option func(*ClientCredentials)

// WithHTTPClient sets the HTTP client used for identity requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ClientCredentials) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *ClientCredentials) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenPath overrides the identity endpoint suffix.
func WithTokenPath(path string) Option {
	return func(c *ClientCredentials) {
		if path != "" {
			c.tokenPath = path
		}
	}
}

// WithSafetyMargin overrides how long before advertised expiry a token
// is treated as stale.
func WithSafetyMargin(d time.Duration) Option {
	return func(c *ClientCredentials) {
		if d > 0 {
			c.safetyMargin = d
		}
	}
}

// NewClientCredentials returns a provider requesting tokens from
// {baseURL}/identity/connect/token with the given credentials.
func NewClientCredentials(baseURL, clientID, clientSecret string, opts ...Option) (*ClientCredentials, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	if clientSecret == "" {
		return nil, ErrClientSecretRequired
	}

	c := &ClientCredentials{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokenPath:    DefaultTokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		safetyMargin: DefaultSafetyMargin,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return c, nil
}

// Token returns the cached token while it is still valid, otherwise
// refreshes it first. Concurrent callers observing an expired cache
// coalesce into a single refresh request; the winning caller's context
// governs that request.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// A caller queued behind a completed refresh re-checks the
		// cache before issuing another identity request.
		if token, ok := c.cached(); ok {
			return token, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate clears the cached token, forcing the next Token call to
// refresh. Call this after a 401 from the ingestion endpoint.
func (c *ClientCredentials) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}

// Expiry returns when the cached token stops being used (advertised
// expiry minus the safety margin). Zero time if no token is cached.
func (c *ClientCredentials) Expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiry
}

// HasValidToken reports whether a cached token is still usable.
func (c *ClientCredentials) HasValidToken() bool {
	_, ok := c.cached()
	return ok
}

func (c *ClientCredentials) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, true
	}
	return "", false
}

// tokenResponse is the identity endpoint's JSON answer.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// refresh issues a client-credentials request and caches the result.
// A refresh failure leaves the provider usable; the next call simply
// retries.
func (c *ClientCredentials) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	endpoint := c.baseURL + c.tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Err: fmt.Errorf("build token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("read token response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", &Error{StatusCode: resp.StatusCode, Err: ErrMissingAccessToken}
	}
	if tr.ExpiresIn <= 0 {
		return "", &Error{StatusCode: resp.StatusCode, Err: ErrMissingExpiry}
	}

	expiry := c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - c.safetyMargin)

	c.mu.Lock()
	c.token = tr.AccessToken
	c.expiry = expiry
	c.mu.Unlock()

	c.logger.Debug("token refreshed", "endpoint", endpoint, "expiry", expiry)
	return tr.AccessToken, nil
}
