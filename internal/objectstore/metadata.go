package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// FindByExternalRecordingID looks up a file already tagged with
// externalRecordingID, satisfying spec §4.2's idempotency short-circuit (an
// earlier attempt that uploaded successfully but crashed before persisting
// the Recording row should not re-upload). Returns nil, nil when no match
// is found.
func (c *Client) FindByExternalRecordingID(ctx context.Context, externalRecordingID string) (*Metadata, error) {
	path := "/files?tag=externalRecordingId:" + url.QueryEscape(externalRecordingID)

	var respBody findByTagResponse

	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &respBody); err != nil {
		return nil, fmt.Errorf("objectstore: finding file by tag: %w", err)
	}

	if len(respBody.Files) == 0 {
		return nil, nil //nolint:nilnil // "not found" is a valid, common outcome, not an error
	}

	return &respBody.Files[0], nil
}

// GetMetadata fetches a file's current metadata, used by the pre-publish
// preview-wait poll (spec §4.7) and the wakeup job (spec §4.9).
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*Metadata, error) {
	var m Metadata

	_, err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, &m)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil //nolint:nilnil // caller (wakeup job) treats a vanished file as given up, not fatal
		}

		return nil, fmt.Errorf("objectstore: fetching metadata for %s: %w", fileID, err)
	}

	return &m, nil
}

// ProbeHead issues a passive HEAD against the file's view URL, per the
// wakeup job's "issue passive HEAD + re-fetch metadata" step (spec §4.9).
// The response status is not inspected — this is purely a warmup nudge to
// the object store's preview-rendering pipeline.
func (c *Client) ProbeHead(ctx context.Context, viewURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, viewURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("objectstore: building head probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("objectstore: head probe: %w", err)
	}

	resp.Body.Close()

	return nil
}
