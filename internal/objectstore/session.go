package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/artifact"
)

// InitiateUpload begins a resumable upload session, satisfying
// artifact.SessionInitiator. tags carries the idempotency/lineage metadata
// (meetingId, courseId, externalRecordingId per spec §4.2) the object store
// stores alongside the file so FindByExternalRecordingID can short-circuit
// a later retry.
func (c *Client) InitiateUpload(ctx context.Context, name, folderID string, tags map[string]string, size int64) (*artifact.UploadSession, error) {
	reqBody := initiateUploadRequest{Name: name, FolderID: folderID, Size: size, Tags: tags}

	var respBody initiateUploadResponse

	resp, err := c.doJSON(ctx, http.MethodPost, "/uploads", reqBody, &respBody)
	if err != nil {
		return nil, fmt.Errorf("objectstore: initiating upload session: %w", err)
	}

	uploadURL := respBody.UploadURL
	if uploadURL == "" {
		uploadURL = resp.Header.Get("Location")
	}

	if uploadURL == "" {
		return nil, fmt.Errorf("objectstore: initiate upload response carried no session URL")
	}

	return &artifact.UploadSession{URL: uploadURL, ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
}

// Upload uploads localPath via the shared transfer engine, tagging it with
// the idempotency metadata InitiateUpload will persist.
func (c *Client) Upload(ctx context.Context, localPath, name, folderID string, tags map[string]string) (*artifact.UploadResult, error) {
	return c.transfer.Upload(ctx, c, localPath, name, folderID, tags)
}
