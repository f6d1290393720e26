// Package forum is the HTTP client for the LMS's form-encoded web-service
// API: course lookup, forum listing, and discussion creation. Grounded on
// internal/conferencing's "sentinel error + ClientError + retry.Policy"
// shape, adapted to a single form-encoded endpoint (wsfunction dispatch)
// rather than a REST-per-resource surface, mirroring how Moodle's own
// webservice/rest/server.php works.
package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

const (
	userAgent      = "recording-pipeline/0.1"
	restFormat     = "json"
	restEndpoint   = "/webservice/rest/server.php"
)

var (
	ErrServerError = errors.New("forum: server error")
	ErrBadRequest  = errors.New("forum: bad request")
	ErrWSException = errors.New("forum: web service exception")
)

// ClientError wraps a web-service exception response (HTTP 200, JSON body
// carrying exception/errorcode/message instead of the expected payload).
type ClientError struct {
	ErrorCode string
	Message   string
	Err       error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("forum: %s: %s", e.ErrorCode, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// Client is the LMS forum/web-service client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	policy     *retry.Policy
	logger     *slog.Logger
}

// NewClient builds a Client. cfg.BaseURL is the Moodle site root (no
// trailing slash); restEndpoint is appended for every call.
func NewClient(cfg config.ForumConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		policy:     retry.New("forum", time.Second, 30*time.Second, 5),
		logger:     logger,
	}
}

// call dispatches wsfunction against the REST endpoint with params, decoding
// the JSON response into target. Every web service call is a form-encoded
// POST carrying wstoken/wsfunction/moodlewsrestformat regardless of the
// logical operation, per the LMS's single-endpoint RPC convention.
func (c *Client) call(ctx context.Context, wsfunction string, params url.Values, target any) error {
	if params == nil {
		params = url.Values{}
	}

	params.Set("wstoken", c.token)
	params.Set("wsfunction", wsfunction)
	params.Set("moodlewsrestformat", restFormat)

	c.logger.Debug("forum:call", slog.String("function", wsfunction))

	var raw json.RawMessage

	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+restEndpoint, bytes.NewReader([]byte(params.Encode())))
		if err != nil {
			return fmt.Errorf("forum: building request: %w", err)
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retriable(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Retriable(fmt.Errorf("forum: reading response: %w", err))
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.Retriable(fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode))
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("%w: status %d", ErrBadRequest, resp.StatusCode)
		}

		var wsErr wsException
		if json.Unmarshal(body, &wsErr) == nil && wsErr.isSet() {
			return &ClientError{ErrorCode: wsErr.ErrorCode, Message: wsErr.Message, Err: ErrWSException}
		}

		raw = body

		return nil
	})
	if err != nil {
		return fmt.Errorf("forum: calling %s: %w", wsfunction, err)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("forum: decoding %s response: %w", wsfunction, err)
	}

	return nil
}
