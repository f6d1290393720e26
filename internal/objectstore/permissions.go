package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GrantPermissions makes fileID viewable by anyone with the link (reader)
// while requiring sign-in to copy it, per spec §4.7. Callers should log and
// continue on error rather than fail the pipeline — publishing the
// discussion with an unshared preview is recoverable, re-downloading the
// whole recording is not.
func (c *Client) GrantPermissions(ctx context.Context, fileID string) error {
	path := "/files/" + fileID + "/permissions"

	reqBody := grantPermissionsRequest{Role: "reader", AnyoneWithLink: true, CopyRequiresAuth: true}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("objectstore: encoding request body: %w", err)
	}

	err = c.permissionsPolicy.Run(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(encoded))
		if err != nil {
			return classifyForRetry(err)
		}

		resp.Body.Close()

		return nil
	})
	if err != nil {
		return fmt.Errorf("objectstore: granting permissions on %s: %w", fileID, err)
	}

	return nil
}
