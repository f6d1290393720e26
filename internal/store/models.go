// Package store implements SQLite persistence for meetings, recordings, and
// licenses: WAL mode, goose-embedded migrations, and prepared statements
// grouped by domain.
package store

import "time"

// MeetingStatus is the lifecycle state of a Meeting (spec §3).
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCompleted MeetingStatus = "completed"
)

// Meeting is a scheduled conferencing session. Created by the scheduling
// path or synthesized by the Coordinator when a webhook arrives for an
// unknown external id; mutated to MeetingCompleted exactly once.
type Meeting struct {
	ID                int64
	ExternalMeetingID string // unique when present; empty for not-yet-bound rows
	Topic             string
	CourseID          *int64
	Status            MeetingStatus
	StartTime         *time.Time
	JoinURL           string
	StartURL          string
	LicenseRef        string // zoomLicenseId equivalent; empty when absent
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recording is the result of a single successful ingestion (spec §3).
type Recording struct {
	ID                 int64
	MeetingID           int64 // logical FK, not enforced structurally
	ExternalRecordingID string
	ArtifactURL         string
	CreatedAt           time.Time
	RetryCount          int
	LastRetryAt         *time.Time
	WakeupAttempts      int
	LastWakeupAt        *time.Time
}

// License is a bookkeeping row for an external account slot assigned for
// the duration of a meeting; the pipeline only ever calls Release with the
// meeting's LicenseRef against the external client (internal/license), recording the outcome
// here for observability and the wakeup job's idempotency checks.
type License struct {
	ID                int64
	MeetingID         int64
	ExternalLicenseID string
	ReleasedAt        *time.Time
	CreatedAt         time.Time
}
