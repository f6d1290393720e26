package conferencing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

const userAgent = "recording-pipeline/0.1"

// tokenExpiryMargin is how far ahead of declared expiry the cached token is
// treated as stale, per spec §5 ("refreshed automatically when within 60s
// of its declared expiry").
const tokenExpiryMargin = 60 * time.Second

// tokenSource is satisfied by cachingTokenSource: a cached, lazily
// refreshed token plus a way to force a refresh outside the normal
// expiry-margin check.
type tokenSource interface {
	Token() (string, error)
	ForceRefresh() (string, error)
}

// Client is an HTTP client for the conferencing provider, grounded on
// graph.Client: base URL, retry loop, pluggable sleep via the shared
// retry.Policy, and structured logging of every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenSource
	policy     *retry.Policy
	logger     *slog.Logger
}

// NewClient builds a Client using a client-credentials OAuth grant against
// cfg.TokenURL, with EndpointParams carrying account_id and the provider's
// nonstandard "account_credentials" grant type — golang.org/x/oauth2's
// clientcredentials machinery, applied here to a daemon-style
// client-credentials grant instead of an interactive device-code flow.
func NewClient(cfg config.ConferencingConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	oauthCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInHeader,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		tokens:     &cachingTokenSource{inner: oauthCfg.TokenSource(context.Background())},
		policy:     retry.New("conferencing", 30*time.Second, 300*time.Second, 10),
		logger:     logger,
	}
}

// cachingTokenSource wraps an oauth2.TokenSource with an explicit mutex-
// guarded single-slot cache, mirroring driveops.SessionProvider's
// mutex+map tokenCache idiom (collapsed to one slot since this client
// authenticates as a single account).
type cachingTokenSource struct {
	inner oauth2.TokenSource

	mu     sync.Mutex
	cached *oauth2.Token
}

func (c *cachingTokenSource) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Until(c.cached.Expiry) > tokenExpiryMargin {
		return c.cached.AccessToken, nil
	}

	return c.refreshLocked()
}

// ForceRefresh discards any cached token and fetches a new one
// unconditionally, regardless of the cached token's declared expiry.
// Used when a caller observes a 401/403 that the expiry-margin check
// didn't anticipate.
func (c *cachingTokenSource) ForceRefresh() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cached = nil

	return c.refreshLocked()
}

func (c *cachingTokenSource) refreshLocked() (string, error) {
	tok, err := c.inner.Token()
	if err != nil {
		return "", fmt.Errorf("conferencing: refreshing token: %w", err)
	}

	c.cached = tok

	return tok.AccessToken, nil
}

// RefreshAccessToken forces a new OAuth bearer token from the provider's
// token endpoint, discarding any cached one. Satisfies
// internal/artifact.TokenRefresher, used there to obtain a genuinely
// refreshed token after a download's 401/403 per spec §4.1/§7.
func (c *Client) RefreshAccessToken() (string, error) {
	return c.tokens.ForceRefresh()
}

// ListRecordings fetches one page of the paginated recordings listing for
// the given time window.
func (c *Client) ListRecordings(ctx context.Context, from, to time.Time, pageToken string) (*RecordingsPage, error) {
	path := fmt.Sprintf("/recordings?from=%s&to=%s",
		url.QueryEscape(from.Format("2006-01-02")), url.QueryEscape(to.Format("2006-01-02")))
	if pageToken != "" {
		path += "&next_page_token=" + url.QueryEscape(pageToken)
	}

	var page RecordingsPage

	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return classifyForRetry(err)
		}
		defer resp.Body.Close()

		return json.NewDecoder(resp.Body).Decode(&page)
	})
	if err != nil {
		return nil, fmt.Errorf("conferencing: list recordings: %w", err)
	}

	return &page, nil
}

// GetMeeting fetches a single meeting's recording files by external meeting id.
func (c *Client) GetMeeting(ctx context.Context, externalMeetingID string) (*MeetingObject, error) {
	path := "/meetings/" + url.PathEscape(externalMeetingID) + "/recordings"

	var m MeetingObject

	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return classifyForRetry(err)
		}
		defer resp.Body.Close()

		return json.NewDecoder(resp.Body).Decode(&m)
	})
	if err != nil {
		return nil, fmt.Errorf("conferencing: get meeting %s: %w", externalMeetingID, err)
	}

	return &m, nil
}

// do executes a single authenticated request (no retry — callers drive
// retry.Policy.Run around this), mirroring graph.Client.doOnce.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	c.logger.Debug("conferencing: request", slog.String("method", method), slog.String("path", path))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	errBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	return nil, &ClientError{StatusCode: resp.StatusCode, Message: string(errBody), Err: classifyStatus(resp.StatusCode)}
}

// classifyForRetry wraps err in retry.Retriable when it represents a
// transient condition (transport error, 429/5xx, or not-ready), mirroring
// graph's isRetryable gate but expressed through the shared retry package.
func classifyForRetry(err error) error {
	var ce *ClientError
	if errors.As(err, &ce) {
		if isRetryable(ce.StatusCode) || errors.Is(ce.Err, ErrNotReady) {
			return retry.Retriable(err)
		}

		return err
	}

	// Network/transport errors (no status code available) are always retriable.
	return retry.Retriable(err)
}
