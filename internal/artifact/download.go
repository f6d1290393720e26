package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"log/slog"

	"github.com/acme-edu/recording-pipeline/internal/retry"
)

// DownloadResult reports what the provider told us about a completed
// download, for the caller to persist alongside the recording.
type DownloadResult struct {
	ContentType   string
	ContentLength int64
}

type headInfo struct {
	contentType   string
	contentLength int64
}

// Download fetches url to destPath with HEAD warmup, Range-based resume,
// and post-body validation, per spec §4.1.
//
// authToken is the provider's artifact access token: sent as a query
// parameter on the first attempt, then as a Bearer header once a 401/403
// forces a fallback. Per spec §4.1/§7, that same 401/403 also triggers one
// forced token refresh through c.tokenRefresher (if wired) before the
// retried request, so the fallback attempt uses an actually-refreshed
// bearer token rather than resending the stale one. minExpectedBytes is
// the configured size floor below which a recording is considered not yet
// finalized upstream. expectedBytes (0 if unknown) is the provider-reported
// size, used only to log a post-download size warning — a mismatch is
// never a hard failure.
func (c *Client) Download(
	ctx context.Context, url, destPath, authToken string, expectedBytes, minExpectedBytes int64,
) (*DownloadResult, error) {
	c.logger.Info("download: starting", slog.String("dest", destPath))

	head, err := c.headWarmup(ctx, url, authToken, minExpectedBytes)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil { //nolint:mnd // owner-only dir perms
		return nil, fmt.Errorf("artifact: creating download dir: %w", err)
	}

	partialPath := destPath + ".partial"
	useHeaderAuth := false
	refreshed := false

	runErr := c.downloadPolicy.Run(ctx, func(ctx context.Context, attempt int) error {
		resumeFrom, statErr := partialSize(partialPath)
		if statErr != nil {
			return fmt.Errorf("artifact: stat partial: %w", statErr)
		}

		resp, reqErr := c.doDownloadAttempt(ctx, url, authToken, useHeaderAuth, resumeFrom)
		if reqErr != nil {
			if errors.Is(reqErr, ErrAuth) {
				useHeaderAuth = true

				if c.tokenRefresher != nil && !refreshed {
					refreshed = true

					if newToken, refreshErr := c.tokenRefresher.RefreshAccessToken(); refreshErr == nil {
						authToken = newToken
					} else {
						c.logger.Warn("download: forced token refresh failed, retrying with original token",
							slog.String("error", refreshErr.Error()))
					}
				}
			}

			return reqErr
		}
		defer resp.Body.Close()

		return writeDownloadResponse(resp, partialPath, resumeFrom)
	})
	if runErr != nil {
		return nil, runErr
	}

	if err := validateDownloadedFile(partialPath, destPath, expectedBytes, minExpectedBytes, c.logger); err != nil {
		return nil, err
	}

	if err := os.Rename(partialPath, destPath); err != nil {
		return nil, fmt.Errorf("artifact: renaming partial to %s: %w", destPath, err)
	}

	c.logger.Debug("download: complete", slog.String("dest", destPath))

	return &DownloadResult{ContentType: head.contentType, ContentLength: head.contentLength}, nil
}

// headWarmup probes the artifact URL before attempting the body download.
// A not-ready status or a suspiciously small Content-Length earns one
// retry after a fixed wait; a second failure is reported as ErrNotReady.
func (c *Client) headWarmup(ctx context.Context, rawURL, authToken string, minExpectedBytes int64) (*headInfo, error) {
	for attempt := 0; attempt < 2; attempt++ {
		req, err := buildAuthRequest(ctx, http.MethodHead, rawURL, authToken, attempt > 0)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: HEAD warmup: %v", ErrTransport, err)
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusConflict, http.StatusTooEarly:
			if attempt == 0 {
				c.logger.Info("download: artifact not ready, waiting", slog.Int("status", resp.StatusCode))

				if err := c.clock.Sleep(ctx, headWarmupWait); err != nil {
					return nil, err
				}

				continue
			}

			return nil, ErrNotReady

		case http.StatusUnauthorized, http.StatusForbidden:
			if attempt == 0 {
				continue
			}

			return nil, ErrAuth
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("%w: HEAD warmup status %d", ErrTransport, resp.StatusCode)
		}

		length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if length > 0 && length < minExpectedBytes {
			if attempt == 0 {
				c.logger.Info("download: artifact below size floor, waiting", slog.Int64("length", length))

				if err := c.clock.Sleep(ctx, headWarmupWait); err != nil {
					return nil, err
				}

				continue
			}

			return nil, ErrNotReady
		}

		return &headInfo{contentType: resp.Header.Get("Content-Type"), contentLength: length}, nil
	}

	return nil, ErrNotReady
}

func (c *Client) doDownloadAttempt(
	ctx context.Context, rawURL, authToken string, useHeaderAuth bool, resumeFrom int64,
) (*http.Response, error) {
	req, err := buildAuthRequest(ctx, http.MethodGet, rawURL, authToken, useHeaderAuth)
	if err != nil {
		return nil, err
	}

	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Retriable(fmt.Errorf("%w: %v", ErrTransport, err))
	}

	switch resp.StatusCode {
	case http.StatusPartialContent, http.StatusOK, http.StatusRequestedRangeNotSatisfiable:
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Retriable: the caller flips to header auth and the next attempt
		// should succeed, rather than exhausting the policy on a single 401.
		return nil, retry.Retriable(fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode))
	case isRetryableStatus(resp.StatusCode):
		return nil, retry.Retriable(fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, string(body)))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidArtifact, resp.StatusCode, string(body))
	}
}

// writeDownloadResponse appends or restarts the partial file depending on
// how the server answered the Range request, per spec §4.1: 206 appends,
// 200 in response to a Range request means the server ignored it and the
// file must restart from zero, 416 is accepted as already-complete when a
// partial already exists.
func writeDownloadResponse(resp *http.Response, partialPath string, resumeFrom int64) error {
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		existing, err := partialSize(partialPath)
		if err != nil {
			return err
		}

		if existing > 0 {
			return nil
		}

		return fmt.Errorf("%w: range not satisfiable with no existing partial data", ErrInvalidArtifact)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resp.StatusCode == http.StatusPartialContent && resumeFrom > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(partialPath, flags, 0o600) //nolint:mnd // owner-only file perms
	if err != nil {
		return fmt.Errorf("artifact: opening partial file: %w", err)
	}

	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()

	if copyErr != nil {
		return retry.Retriable(fmt.Errorf("%w: streaming body: %v", ErrTransport, copyErr))
	}

	if closeErr != nil {
		return fmt.Errorf("artifact: closing partial file: %w", closeErr)
	}

	return nil
}

func validateDownloadedFile(partialPath, destPath string, expectedBytes, minExpectedBytes int64, logger *slog.Logger) error {
	info, err := os.Stat(partialPath)
	if err != nil {
		return fmt.Errorf("%w: stat downloaded file: %v", ErrInvalidArtifact, err)
	}

	if info.Size() <= 0 {
		os.Remove(partialPath)
		return fmt.Errorf("%w: downloaded file is empty", ErrInvalidArtifact)
	}

	if minExpectedBytes > 0 && info.Size() < minExpectedBytes {
		os.Remove(partialPath)
		return fmt.Errorf("%w: downloaded file below size floor (%d < %d)", ErrInvalidArtifact, info.Size(), minExpectedBytes)
	}

	if !strings.HasSuffix(strings.ToLower(destPath), ".mp4") {
		os.Remove(partialPath)
		return fmt.Errorf("%w: destination path is not .mp4", ErrInvalidArtifact)
	}

	if ct, sniffErr := sniffContentType(partialPath); sniffErr == nil && strings.Contains(ct, "text/html") {
		os.Remove(partialPath)
		return fmt.Errorf("%w: downloaded content is text/html, not video", ErrInvalidArtifact)
	}

	if expectedBytes > 0 && info.Size() != expectedBytes {
		logger.Warn("download: size mismatch against provider-reported size",
			slog.Int64("local_size", info.Size()), slog.Int64("expected_size", expectedBytes))
	}

	return nil
}

func sniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)

	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return http.DetectContentType(buf[:n]), nil
}

func partialSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, err
	}

	return info.Size(), nil
}

// buildAuthRequest attaches authToken either as a query parameter (the
// first attempt's preference, per spec §4.1) or as a Bearer header once a
// prior attempt has signaled an auth failure.
func buildAuthRequest(ctx context.Context, method, rawURL, authToken string, useHeader bool) (*http.Request, error) {
	target := rawURL

	if authToken != "" && !useHeader {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}

		target = rawURL + sep + "access_token=" + url.QueryEscape(authToken)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("artifact: building request: %w", err)
	}

	if authToken != "" && useHeader {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

func isRetryableStatus(code int) bool {
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
