package artifact

import (
	"context"
	"time"
)

// UploadSession is an in-progress resumable upload with a pre-authenticated
// PUT URL, good until ExpiresAt.
type UploadSession struct {
	URL       string
	ExpiresAt time.Time
}

// SessionInitiator begins a resumable upload session and returns its
// pre-authenticated URL. The concrete object store client is the only
// implementation; kept as an interface so the chunked-PUT engine in
// upload.go has no knowledge of the initiate-session JSON shape, mirroring
// how graph.UploadChunk doesn't know how CreateUploadSession built its
// request — only that it received a usable UploadURL.
type SessionInitiator interface {
	InitiateUpload(ctx context.Context, name, folderID string, tags map[string]string, size int64) (*UploadSession, error)
}
