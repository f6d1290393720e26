// Package pipeline implements spec §4.7's Pipeline Coordinator: the state
// machine that turns a completed-recording event into a downloaded,
// re-uploaded, and published artifact, with idempotency short-circuits at
// every stage. The same "acquire guard, do the transfer, persist state,
// release guard" shape as a one-way file-sync upload, generalized into a
// download-then-reupload round trip with an LMS discussion post at the
// end.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/acme-edu/recording-pipeline/internal/artifact"
	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/conferencing"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/objectstore"
	"github.com/acme-edu/recording-pipeline/internal/store"
)

// Downloader is the subset of *artifact.Client the Coordinator depends on.
type Downloader interface {
	Download(ctx context.Context, url, destPath, authToken string, expectedBytes, minExpectedBytes int64) (*artifact.DownloadResult, error)
}

// ObjectStore is the subset of *objectstore.Client the Coordinator depends
// on, covering upload, folder provisioning, tag-based lookup, and
// permissions.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, name, folderID string, tags map[string]string) (*artifact.UploadResult, error)
	EnsureDestinationPath(ctx context.Context, courseFolderName, yearMonth string) (string, error)
	RootFolder() string
	FindByExternalRecordingID(ctx context.Context, externalRecordingID string) (*objectstore.Metadata, error)
	GetMetadata(ctx context.Context, fileID string) (*objectstore.Metadata, error)
	GrantPermissions(ctx context.Context, fileID string) error
}

// ForumClient is the subset of *forum.Client the Coordinator depends on.
type ForumClient interface {
	ResolveForumID(ctx context.Context, courseID int) (int, error)
	CreateDiscussion(ctx context.Context, forumID int, subject, message string) (int, error)
}

// LicenseReleaser is the subset of *license.Client the Coordinator depends on.
type LicenseReleaser interface {
	Release(ctx context.Context, externalLicenseID string) error
}

// CourseResolver is the subset of *courseresolve.Resolver the Coordinator
// depends on.
type CourseResolver interface {
	Resolve(ctx context.Context, topic string) (int, error)
}

// ConferencingClient is the subset of *conferencing.Client the Coordinator
// depends on, used only by the manual-retry "full"/"forceRedownload" paths
// that re-fetch a meeting's current recording listing rather than relying
// on the (possibly stale) webhook payload.
type ConferencingClient interface {
	GetMeeting(ctx context.Context, externalMeetingID string) (*conferencing.MeetingObject, error)
}

// Coordinator wires every outbound dependency and process-local guard into
// spec §4.7's ingestion state machine. Satisfies webhook.Coordinator.
type Coordinator struct {
	downloader   Downloader
	objectStore  ObjectStore
	forum        ForumClient
	license      LicenseReleaser
	resolver     CourseResolver
	conferencing ConferencingClient
	store        *store.SQLiteStore
	guards       *Guards

	clock  clock.Clock
	cfg    config.Config
	logger *slog.Logger
}

// Deps bundles every Coordinator dependency, keeping NewCoordinator's
// signature from growing a dozen positional parameters.
type Deps struct {
	Downloader   Downloader
	ObjectStore  ObjectStore
	Forum        ForumClient
	License      LicenseReleaser
	Resolver     CourseResolver
	Conferencing ConferencingClient
	Store        *store.SQLiteStore
	Guards       *Guards
	Clock        clock.Clock
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(deps Deps, cfg config.Config, logger *slog.Logger) *Coordinator {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	return &Coordinator{
		downloader:   deps.Downloader,
		objectStore:  deps.ObjectStore,
		forum:        deps.Forum,
		license:      deps.License,
		resolver:     deps.Resolver,
		conferencing: deps.Conferencing,
		store:        deps.Store,
		guards:       deps.Guards,
		clock:        clk,
		cfg:          cfg,
		logger:       logger,
	}
}
