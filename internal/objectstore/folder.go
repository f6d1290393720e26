package objectstore

import (
	"context"
	"fmt"
	"net/http"
)

// EnsureFolder finds-or-creates a folder named name under parentID, per
// spec §4.7's "ensure folder(courseId)/folder(yyyy-MM)" destination layout.
// The object store's /folders endpoint is idempotent on (parentId, name).
func (c *Client) EnsureFolder(ctx context.Context, parentID, name string) (*FolderInfo, error) {
	var info FolderInfo

	_, err := c.doJSON(ctx, http.MethodPost, "/folders", ensureFolderRequest{Name: name, ParentID: parentID}, &info)
	if err != nil {
		return nil, fmt.Errorf("objectstore: ensuring folder %q under %q: %w", name, parentID, err)
	}

	return &info, nil
}

// EnsureDestinationPath ensures the course folder and the yyyy-MM subfolder
// beneath it exist, returning the subfolder's id as the upload destination.
func (c *Client) EnsureDestinationPath(ctx context.Context, courseFolderName, yearMonth string) (string, error) {
	courseFolder, err := c.EnsureFolder(ctx, c.rootFolder, courseFolderName)
	if err != nil {
		return "", err
	}

	monthFolder, err := c.EnsureFolder(ctx, courseFolder.FolderID, yearMonth)
	if err != nil {
		return "", err
	}

	return monthFolder.FolderID, nil
}
