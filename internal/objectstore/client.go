// Package objectstore is the domain client for the long-term object store:
// upload-session initiation, folder provisioning, metadata/tag lookup, and
// permission grants. It implements internal/artifact.SessionInitiator and
// delegates the chunked-PUT mechanics to an internal/artifact.Client, the
// same layering as a driveops package sitting on top of a low-level
// graph client.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/artifact"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

const userAgent = "recording-pipeline/0.1"

// Sentinel errors for HTTP status classification, mirroring conferencing.ClientError.
var (
	ErrNotFound    = errors.New("objectstore: not found")
	ErrServerError = errors.New("objectstore: server error")
	ErrBadRequest  = errors.New("objectstore: bad request")
)

// ClientError wraps a sentinel error with the HTTP status code and body.
type ClientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("objectstore: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// Client is the object store domain client.
type Client struct {
	baseURL     string
	bearerToken string
	rootFolder  string
	httpClient  *http.Client
	transfer    *artifact.Client
	policy      *retry.Policy
	// permissionsPolicy is deliberately independent of policy: spec §4.7
	// calls out the permission grant as retrying "independently" of the
	// surrounding upload, exponential up to 30s, with final exhaustion
	// treated as non-fatal rather than aborting the pipeline.
	permissionsPolicy *retry.Policy
	logger            *slog.Logger
}

// NewClient builds a Client. transfer performs the actual chunked PUT/GET
// mechanics; this Client only knows how to shape this object store's JSON.
func NewClient(cfg config.ObjectStoreConfig, httpClient *http.Client, transfer *artifact.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:           cfg.BaseURL,
		bearerToken:       cfg.BearerToken,
		rootFolder:        cfg.RootFolder,
		httpClient:        httpClient,
		transfer:          transfer,
		policy:            retry.New("objectstore", 30*time.Second, 300*time.Second, 10),
		permissionsPolicy: retry.New("objectstore-permissions", time.Second, 30*time.Second, 5),
		logger:            logger,
	}
}

// RootFolder returns the configured root folder id recordings are filed under.
func (c *Client) RootFolder() string { return c.rootFolder }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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

// doJSON executes a JSON request/response round trip through c.policy,
// mirroring conferencing.Client's "build path, do, decode" shape.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) (*http.Response, error) {
	var bodyReader io.Reader

	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("objectstore: encoding request body: %w", err)
		}

		bodyReader = bytes.NewReader(encoded)
	}

	var lastResp *http.Response

	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.do(ctx, method, path, bodyReader)
		if err != nil {
			return classifyForRetry(err)
		}
		defer resp.Body.Close()

		lastResp = resp

		if respBody == nil {
			return nil
		}

		return json.NewDecoder(resp.Body).Decode(respBody)
	})
	if err != nil {
		return nil, err
	}

	return lastResp, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return nil
	}
}

func classifyForRetry(err error) error {
	var ce *ClientError
	if errors.As(err, &ce) {
		if isRetryable(ce.StatusCode) {
			return retry.Retriable(err)
		}

		return err
	}

	return retry.Retriable(err)
}

func isRetryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
