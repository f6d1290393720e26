// Package retryengine implements spec §4.8's manual-retry/historical-backfill
// subsystem: selector resolution, mode determination, and per-target
// dispatch reusing internal/pipeline's Coordinator for the actual network
// work rather than duplicating it per call site.
package retryengine

import (
	"errors"
	"time"
)

// ErrInvalidSelector is returned when a Request sets zero or more than one
// of its mutually-exclusive selector fields.
var ErrInvalidSelector = errors.New("retryengine: exactly one selector must be set")

const defaultLimit = 5

// Request is the manual-retry DTO (spec §4.8), bound directly from
// POST /admin/recordings/retry's JSON body.
type Request struct {
	ExternalRecordingID string     `json:"externalRecordingId,omitempty"`
	InternalMeetingID   *int64     `json:"internalMeetingId,omitempty"`
	ExternalMeetingID   string     `json:"externalMeetingId,omitempty"`
	From                *time.Time `json:"from,omitempty"`
	To                  *time.Time `json:"to,omitempty"`

	Republish        bool   `json:"republish,omitempty"`
	ForceRedownload  bool   `json:"forceRedownload,omitempty"`
	ForceRepost      bool   `json:"forceRepost,omitempty"`
	OverrideCourseID *int64 `json:"overrideCourseId,omitempty"`
	DryRun           bool   `json:"dryRun,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

// limit returns the effective page size, defaulting to defaultLimit.
func (r Request) limit() int {
	if r.Limit <= 0 {
		return defaultLimit
	}

	return r.Limit
}

// isTimeRange reports whether the request selects by {from, to}.
func (r Request) isTimeRange() bool {
	return r.From != nil && r.To != nil
}

// validate enforces spec §4.8's "exactly one selector" rule.
func (r Request) validate() error {
	set := 0

	if r.ExternalRecordingID != "" {
		set++
	}

	if r.InternalMeetingID != nil {
		set++
	}

	if r.ExternalMeetingID != "" {
		set++
	}

	if r.isTimeRange() {
		set++
	}

	if set != 1 {
		return ErrInvalidSelector
	}

	return nil
}

// Result is a single target's retry-result record (spec §4.8): exactly one
// produced per resolved target, never aborting the batch on an individual
// failure.
type Result struct {
	Selector            string `json:"selector"`
	Mode                string `json:"mode,omitempty"`
	Status              string `json:"status"`
	Reason              string `json:"reason,omitempty"`
	ExternalMeetingID   string `json:"externalMeetingId,omitempty"`
	ExternalRecordingID string `json:"externalRecordingId,omitempty"`
	DriveURL            string `json:"driveUrl,omitempty"`
}

// Status/reason vocabularies, exact strings per spec §4.8. Some of these
// (reasonNoCourseResolved, reasonNoDriveURLFound) are never constructed
// here directly — they arrive verbatim in internal/pipeline's result maps
// and are forwarded as-is — but are named here so the full vocabulary is
// visible in one place.
const (
	statusOK      = "ok"
	statusFailed  = "failed"
	statusSkipped = "skipped"

	reasonAlreadyCompleted  = "already-completed"
	reasonNoCourseResolved  = "no-course-resolved"
	reasonNoDriveURLFound   = "no-drive-url-found"
	reasonAlreadyInProgress = "already-in-progress"
	reasonDryRun            = "dry-run"
	reasonRepublishedOK     = "republished-successfully"

	modeFull      = "full"
	modeRepublish = "republish"
)
