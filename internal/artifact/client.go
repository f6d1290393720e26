package artifact

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

const userAgent = "recording-pipeline/0.1"

// DefaultChunkSize is the PUT chunk size for resumable uploads, per spec §4.2.
const DefaultChunkSize = 32 * 1024 * 1024

// headWarmupWait is how long Download sleeps before retrying a HEAD warmup
// that reports the artifact isn't ready yet, per spec §4.1.
const headWarmupWait = 30 * time.Second

// TokenRefresher forces a fresh OAuth-style bearer token outside the
// normal expiry-margin refresh, satisfied by *conferencing.Client. Nil
// means no refresher is wired in, and a 401/403 falls back to resending
// the caller-supplied token as a header instead of a query parameter
// rather than obtaining a new one — the only option when authToken isn't
// backed by a refreshable token source (e.g. a webhook-supplied,
// one-shot download token).
type TokenRefresher interface {
	RefreshAccessToken() (string, error)
}

// Client performs the mechanics of resumable transfer: HEAD warmup,
// Range-resume GET, session-based chunked PUT. It carries no knowledge of
// the conferencing provider's or object store's JSON shapes — those live
// in internal/conferencing and internal/objectstore, which call into this
// package the way driveops calls into graph.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock

	downloadPolicy *retry.Policy
	uploadPolicy   *retry.Policy

	chunkSize      int64
	tokenRefresher TokenRefresher
}

// NewClient builds a Client. A zero chunkSize uses DefaultChunkSize.
// tokenRefresher may be nil, in which case a download's 401/403 falls
// back to resending the original token as a header rather than
// refreshing it — see TokenRefresher.
func NewClient(
	httpClient *http.Client, logger *slog.Logger, clk clock.Clock, chunkSize int64,
	maxRetriesDownload, maxRetriesUpload int, initialBackoff, maxBackoff time.Duration,
	tokenRefresher TokenRefresher,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Client{
		httpClient:     httpClient,
		logger:         logger,
		clock:          clk,
		downloadPolicy: retry.New("download", initialBackoff, maxBackoff, maxRetriesDownload),
		uploadPolicy:   retry.New("upload", initialBackoff, maxBackoff, maxRetriesUpload),
		chunkSize:      chunkSize,
		tokenRefresher: tokenRefresher,
	}
}
