// Package license is a thin client wrapping the external license-pool's
// "release" hook — the only license-pool operation the pipeline core
// depends on (spec §1). Everything else about license assignment is out of
// scope; this package exists solely so internal/pipeline has somewhere to
// release a meeting's license (by its external license id) without reaching into internal/objectstore or
// internal/conferencing's unrelated concerns.
package license

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

const userAgent = "recording-pipeline/0.1"

// Client calls the external license-pool release endpoint.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	policy      *retry.Policy
	logger      *slog.Logger
}

// NewClient builds a Client.
func NewClient(cfg config.LicenseConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		bearerToken: cfg.BearerToken,
		httpClient:  httpClient,
		policy:      retry.New("license", time.Second, 30*time.Second, 5),
		logger:      logger,
	}
}

// Release marks externalLicenseID's account slot free for reassignment.
// Callers (internal/pipeline) should log-and-continue on error per spec
// §4.7: a failed release never aborts an otherwise-successful pipeline run.
func (c *Client) Release(ctx context.Context, externalLicenseID string) error {
	c.logger.Debug("license:release", slog.String("license_id", externalLicenseID))

	path := c.baseURL + "/licenses/" + externalLicenseID + "/release"

	err := c.policy.Run(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, http.NoBody)
		if err != nil {
			return fmt.Errorf("license: building request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retriable(err)
		}
		defer resp.Body.Close()

		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse only

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return retry.Retriable(fmt.Errorf("license: release %s: status %d", externalLicenseID, resp.StatusCode))
		}

		return fmt.Errorf("license: release %s: status %d", externalLicenseID, resp.StatusCode)
	})
	if err != nil {
		return fmt.Errorf("license: releasing %s: %w", externalLicenseID, err)
	}

	return nil
}
