package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, registers as "sqlite"
)

const walJournalSizeLimit = 67108864 // 64 MiB

// SQLiteStore persists meetings, recordings, and licenses in an embedded
// SQLite database opened in WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	meetingStmts   meetingStatements
	recordingStmts recordingStatements
	licenseStmts   licenseStatements
}

type meetingStatements struct {
	getByID, getByExternalID, insert, updateCourse, markCompleted, listByTimeRange *sql.Stmt
}

type recordingStatements struct {
	getByExternalID, getByID, insert, updateArtifact, incrementRetry, updateWakeup,
	listWakeupCandidates, listPendingWithoutArtifact, listPendingAll, getLatestByMeeting *sql.Stmt
}

type licenseStatements struct {
	insertReleased, getByMeeting *sql.Stmt
}

// New opens the database at dbPath (":memory:" for tests), applies
// pragmas, runs pending migrations, and prepares all statements.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	logger.Info("opening store database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareAll(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	logger.Info("store database ready", slog.String("path", dbPath))

	return s, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	return nil
}

type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *SQLiteStore) prepareAll(ctx context.Context) error {
	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.meetingStmts.getByID, sqlGetMeetingByID, "getMeetingByID"},
		{&s.meetingStmts.getByExternalID, sqlGetMeetingByExternalID, "getMeetingByExternalID"},
		{&s.meetingStmts.insert, sqlInsertMeeting, "insertMeeting"},
		{&s.meetingStmts.updateCourse, sqlUpdateMeetingCourse, "updateMeetingCourse"},
		{&s.meetingStmts.markCompleted, sqlMarkMeetingCompleted, "markMeetingCompleted"},
		{&s.meetingStmts.listByTimeRange, sqlListMeetingsByTimeRange, "listMeetingsByTimeRange"},
	}); err != nil {
		return err
	}

	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.recordingStmts.getByExternalID, sqlGetRecordingByExternalID, "getRecordingByExternalID"},
		{&s.recordingStmts.getByID, sqlGetRecordingByID, "getRecordingByID"},
		{&s.recordingStmts.insert, sqlInsertRecording, "insertRecording"},
		{&s.recordingStmts.updateArtifact, sqlUpdateRecordingArtifact, "updateRecordingArtifact"},
		{&s.recordingStmts.incrementRetry, sqlIncrementRetry, "incrementRetry"},
		{&s.recordingStmts.updateWakeup, sqlUpdateWakeup, "updateWakeup"},
		{&s.recordingStmts.listWakeupCandidates, sqlListWakeupCandidates, "listWakeupCandidates"},
		{&s.recordingStmts.listPendingWithoutArtifact, sqlListPendingWithoutArtifact, "listPendingWithoutArtifact"},
		{&s.recordingStmts.listPendingAll, sqlListPendingAll, "listPendingAll"},
		{&s.recordingStmts.getLatestByMeeting, sqlGetLatestRecordingByMeeting, "getLatestRecordingByMeeting"},
	}); err != nil {
		return err
	}

	return prepareAll(ctx, s.db, []stmtDef{
		{&s.licenseStmts.insertReleased, sqlInsertLicenseReleased, "insertLicenseReleased"},
		{&s.licenseStmts.getByMeeting, sqlGetLicenseByMeeting, "getLicenseByMeeting"},
	})
}

// --- SQL text, grouped by domain ---

const (
	sqlMeetingColumns = `id, external_meeting_id, topic, course_id, status,
		start_time, join_url, start_url, license_ref, created_at, updated_at`

	sqlGetMeetingByID = `SELECT ` + sqlMeetingColumns + ` FROM meetings WHERE id = ?`

	sqlGetMeetingByExternalID = `SELECT ` + sqlMeetingColumns +
		` FROM meetings WHERE external_meeting_id = ?`

	sqlInsertMeeting = `INSERT INTO meetings
		(external_meeting_id, topic, course_id, status, start_time,
		 join_url, start_url, license_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateMeetingCourse = `UPDATE meetings SET course_id = ?, updated_at = ? WHERE id = ?`

	sqlMarkMeetingCompleted = `UPDATE meetings SET status = ?, updated_at = ? WHERE id = ?`

	sqlListMeetingsByTimeRange = `SELECT ` + sqlMeetingColumns +
		` FROM meetings WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC`
)

const (
	sqlRecordingColumns = `id, meeting_id, external_recording_id, artifact_url,
		created_at, retry_count, last_retry_at, wakeup_attempts, last_wakeup_at`

	sqlGetRecordingByExternalID = `SELECT ` + sqlRecordingColumns +
		` FROM recordings WHERE external_recording_id = ?`

	sqlGetRecordingByID = `SELECT ` + sqlRecordingColumns + ` FROM recordings WHERE id = ?`

	sqlInsertRecording = `INSERT INTO recordings
		(meeting_id, external_recording_id, artifact_url, created_at,
		 retry_count, last_retry_at, wakeup_attempts, last_wakeup_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateRecordingArtifact = `UPDATE recordings SET artifact_url = ? WHERE id = ?`

	sqlIncrementRetry = `UPDATE recordings
		SET retry_count = retry_count + 1, last_retry_at = ?
		WHERE id = ?`

	sqlUpdateWakeup = `UPDATE recordings
		SET wakeup_attempts = ?, last_wakeup_at = ?
		WHERE id = ?`

	sqlListWakeupCandidates = `SELECT ` + sqlRecordingColumns +
		` FROM recordings
		WHERE created_at >= ? AND created_at < ?
		  AND artifact_url != ''
		  AND wakeup_attempts < 2
		  AND (last_wakeup_at IS NULL OR last_wakeup_at <= ?)`

	sqlListPendingWithoutArtifact = `SELECT ` + sqlRecordingColumns +
		` FROM recordings WHERE artifact_url = '' ORDER BY created_at DESC LIMIT ?`

	sqlListPendingAll = `SELECT ` + sqlRecordingColumns +
		` FROM recordings ORDER BY created_at DESC LIMIT ?`

	sqlGetLatestRecordingByMeeting = `SELECT ` + sqlRecordingColumns +
		` FROM recordings WHERE meeting_id = ? ORDER BY id DESC LIMIT 1`
)

const (
	sqlInsertLicenseReleased = `INSERT INTO licenses
		(meeting_id, external_license_id, released_at, created_at)
		VALUES (?, ?, ?, ?)`

	sqlGetLicenseByMeeting = `SELECT id, meeting_id, external_license_id, released_at, created_at
		FROM licenses WHERE meeting_id = ? ORDER BY id DESC LIMIT 1`
)

// --- scan helpers ---

func scanMeeting(row interface{ Scan(...any) error }) (*Meeting, error) {
	m := &Meeting{}

	var (
		externalID sql.NullString
		courseID   sql.NullInt64
		status     string
		startTime  sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(&m.ID, &externalID, &m.Topic, &courseID, &status,
		&startTime, &m.JoinURL, &m.StartURL, &m.LicenseRef, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.ExternalMeetingID = externalID.String
	m.Status = MeetingStatus(status)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if courseID.Valid {
		v := courseID.Int64
		m.CourseID = &v
	}

	if startTime.Valid {
		t := time.Unix(startTime.Int64, 0).UTC()
		m.StartTime = &t
	}

	return m, nil
}

func scanRecording(row interface{ Scan(...any) error }) (*Recording, error) {
	r := &Recording{}

	var (
		createdAt    int64
		lastRetryAt  sql.NullInt64
		lastWakeupAt sql.NullInt64
	)

	err := row.Scan(&r.ID, &r.MeetingID, &r.ExternalRecordingID, &r.ArtifactURL,
		&createdAt, &r.RetryCount, &lastRetryAt, &r.WakeupAttempts, &lastWakeupAt)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(createdAt, 0).UTC()

	if lastRetryAt.Valid {
		t := time.Unix(lastRetryAt.Int64, 0).UTC()
		r.LastRetryAt = &t
	}

	if lastWakeupAt.Valid {
		t := time.Unix(lastWakeupAt.Int64, 0).UTC()
		r.LastWakeupAt = &t
	}

	return r, nil
}

func scanMeetingRows(rows *sql.Rows) ([]*Meeting, error) {
	var out []*Meeting

	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting row: %w", err)
		}

		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meeting rows: %w", err)
	}

	return out, nil
}

func scanRecordingRows(rows *sql.Rows) ([]*Recording, error) {
	var out []*Recording

	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording row: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recording rows: %w", err)
	}

	return out, nil
}

// --- Meeting CRUD ---

// GetMeetingByExternalID returns (nil, nil) if no row exists — callers
// (Coordinator) use the nil meeting to distinguish "synthesize a new
// meeting" from "existing meeting".
func (s *SQLiteStore) GetMeetingByExternalID(ctx context.Context, externalMeetingID string) (*Meeting, error) {
	s.logger.Debug("getting meeting by external id", slog.String("external_meeting_id", externalMeetingID))

	m, err := scanMeeting(s.meetingStmts.getByExternalID.QueryRowContext(ctx, externalMeetingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get meeting by external id %q: %w", externalMeetingID, err)
	}

	return m, nil
}

// GetMeeting returns (nil, nil) if no row exists with the given internal id.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id int64) (*Meeting, error) {
	s.logger.Debug("getting meeting", slog.Int64("id", id))

	m, err := scanMeeting(s.meetingStmts.getByID.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get meeting %d: %w", id, err)
	}

	return m, nil
}

// InsertMeeting synthesizes a new Meeting row and returns its internal id.
func (s *SQLiteStore) InsertMeeting(ctx context.Context, m *Meeting) (int64, error) {
	s.logger.Debug("inserting meeting", slog.String("external_meeting_id", m.ExternalMeetingID), slog.String("topic", m.Topic))

	var externalID any
	if m.ExternalMeetingID != "" {
		externalID = m.ExternalMeetingID
	}

	var courseID any
	if m.CourseID != nil {
		courseID = *m.CourseID
	}

	var startTime any
	if m.StartTime != nil {
		startTime = m.StartTime.Unix()
	}

	now := time.Now().Unix()

	res, err := s.meetingStmts.insert.ExecContext(ctx, externalID, m.Topic, courseID,
		string(m.Status), startTime, m.JoinURL, m.StartURL, m.LicenseRef, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert meeting %q: %w", m.ExternalMeetingID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert meeting %q: last insert id: %w", m.ExternalMeetingID, err)
	}

	return id, nil
}

// UpdateMeetingCourse persists the resolved course id for a meeting.
func (s *SQLiteStore) UpdateMeetingCourse(ctx context.Context, meetingID, courseID int64) error {
	s.logger.Debug("updating meeting course", slog.Int64("meeting_id", meetingID), slog.Int64("course_id", courseID))

	_, err := s.meetingStmts.updateCourse.ExecContext(ctx, courseID, time.Now().Unix(), meetingID)
	if err != nil {
		return fmt.Errorf("update meeting course %d: %w", meetingID, err)
	}

	return nil
}

// MarkMeetingCompleted sets status = completed, mutated exactly once per
// external id per spec §3.
func (s *SQLiteStore) MarkMeetingCompleted(ctx context.Context, meetingID int64) error {
	s.logger.Debug("marking meeting completed", slog.Int64("meeting_id", meetingID))

	_, err := s.meetingStmts.markCompleted.ExecContext(ctx, string(MeetingCompleted), time.Now().Unix(), meetingID)
	if err != nil {
		return fmt.Errorf("mark meeting completed %d: %w", meetingID, err)
	}

	return nil
}

// ListMeetingsByTimeRange returns Meetings created in [from, to), ascending
// by creation time, used by internal/retryengine's time-range backfill
// selector.
func (s *SQLiteStore) ListMeetingsByTimeRange(ctx context.Context, from, to time.Time) ([]*Meeting, error) {
	s.logger.Debug("listing meetings by time range", slog.Time("from", from), slog.Time("to", to))

	rows, err := s.meetingStmts.listByTimeRange.QueryContext(ctx, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list meetings by time range: %w", err)
	}
	defer rows.Close()

	return scanMeetingRows(rows)
}

// --- Recording CRUD ---

// GetRecordingByExternalID returns (nil, nil) if no row exists — the
// idempotency check at the heart of spec invariant I1.
func (s *SQLiteStore) GetRecordingByExternalID(ctx context.Context, externalRecordingID string) (*Recording, error) {
	s.logger.Debug("getting recording by external id", slog.String("external_recording_id", externalRecordingID))

	r, err := scanRecording(s.recordingStmts.getByExternalID.QueryRowContext(ctx, externalRecordingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get recording by external id %q: %w", externalRecordingID, err)
	}

	return r, nil
}

// GetRecording returns (nil, nil) if no row exists with the given internal id.
func (s *SQLiteStore) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	s.logger.Debug("getting recording", slog.Int64("id", id))

	r, err := scanRecording(s.recordingStmts.getByID.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get recording %d: %w", id, err)
	}

	return r, nil
}

// InsertRecording persists a newly-published Recording row and returns its
// internal id.
func (s *SQLiteStore) InsertRecording(ctx context.Context, r *Recording) (int64, error) {
	s.logger.Debug("inserting recording",
		slog.Int64("meeting_id", r.MeetingID), slog.String("external_recording_id", r.ExternalRecordingID))

	now := time.Now().Unix()

	res, err := s.recordingStmts.insert.ExecContext(ctx, r.MeetingID, r.ExternalRecordingID,
		r.ArtifactURL, now, r.RetryCount, nullableUnix(r.LastRetryAt), r.WakeupAttempts, nullableUnix(r.LastWakeupAt))
	if err != nil {
		return 0, fmt.Errorf("insert recording %q: %w", r.ExternalRecordingID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert recording %q: last insert id: %w", r.ExternalRecordingID, err)
	}

	return id, nil
}

// UpdateRecordingArtifact overwrites an existing Recording's artifact URL,
// used by a forced manual re-ingestion (spec §4.8's forceRedownload mode)
// that re-uploads an artifact already represented by a row — avoiding a
// second INSERT against external_recording_id's unique constraint.
func (s *SQLiteStore) UpdateRecordingArtifact(ctx context.Context, recordingID int64, artifactURL string) error {
	s.logger.Debug("updating recording artifact", slog.Int64("recording_id", recordingID))

	_, err := s.recordingStmts.updateArtifact.ExecContext(ctx, artifactURL, recordingID)
	if err != nil {
		return fmt.Errorf("update recording artifact %d: %w", recordingID, err)
	}

	return nil
}

// IncrementRetry bumps retryCount and lastRetryAt, used only by manual
// republish per spec §3.
func (s *SQLiteStore) IncrementRetry(ctx context.Context, recordingID int64) error {
	s.logger.Debug("incrementing retry count", slog.Int64("recording_id", recordingID))

	_, err := s.recordingStmts.incrementRetry.ExecContext(ctx, time.Now().Unix(), recordingID)
	if err != nil {
		return fmt.Errorf("increment retry %d: %w", recordingID, err)
	}

	return nil
}

// UpdateWakeup persists wakeupAttempts/lastWakeupAt, mutated only by the
// Wakeup Job (spec §4.9) and bounded by invariant I4.
func (s *SQLiteStore) UpdateWakeup(ctx context.Context, recordingID int64, attempts int, lastWakeupAt time.Time) error {
	s.logger.Debug("updating wakeup state", slog.Int64("recording_id", recordingID), slog.Int("attempts", attempts))

	_, err := s.recordingStmts.updateWakeup.ExecContext(ctx, attempts, lastWakeupAt.Unix(), recordingID)
	if err != nil {
		return fmt.Errorf("update wakeup %d: %w", recordingID, err)
	}

	return nil
}

// ListWakeupCandidates returns Recordings matching spec §4.9's selection
// criteria for a given calendar-day window and reattempt cutoff.
func (s *SQLiteStore) ListWakeupCandidates(ctx context.Context, windowStart, windowEnd, reattemptCutoff time.Time) ([]*Recording, error) {
	s.logger.Debug("listing wakeup candidates",
		slog.Time("window_start", windowStart), slog.Time("window_end", windowEnd))

	rows, err := s.recordingStmts.listWakeupCandidates.QueryContext(ctx,
		windowStart.Unix(), windowEnd.Unix(), reattemptCutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("list wakeup candidates: %w", err)
	}
	defer rows.Close()

	return scanRecordingRows(rows)
}

// GetLatestRecordingByMeeting returns the most recently inserted Recording
// for meetingID, or (nil, nil) if none exists, used by the manual retry
// engine to resolve an internalMeetingId/externalMeetingId selector down to
// a concrete recording for republish-mode eligibility.
func (s *SQLiteStore) GetLatestRecordingByMeeting(ctx context.Context, meetingID int64) (*Recording, error) {
	s.logger.Debug("getting latest recording by meeting", slog.Int64("meeting_id", meetingID))

	r, err := scanRecording(s.recordingStmts.getLatestByMeeting.QueryRowContext(ctx, meetingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get latest recording by meeting %d: %w", meetingID, err)
	}

	return r, nil
}

// ListPending returns recent Recordings for the admin pending-review
// endpoint, optionally restricted to rows with no stored artifact yet.
func (s *SQLiteStore) ListPending(ctx context.Context, onlyWithoutArtifact bool, limit int) ([]*Recording, error) {
	s.logger.Debug("listing pending recordings", slog.Bool("only_without_artifact", onlyWithoutArtifact), slog.Int("limit", limit))

	stmt := s.recordingStmts.listPendingAll
	if onlyWithoutArtifact {
		stmt = s.recordingStmts.listPendingWithoutArtifact
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending recordings: %w", err)
	}
	defer rows.Close()

	return scanRecordingRows(rows)
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.Unix()
}

// --- License bookkeeping ---

// RecordLicenseReleased appends a row recording that a license release was
// invoked for meetingID. internal/pipeline never calls it for a meeting
// whose LicenseRef is empty: that release is skipped as a no-op, not an
// error (see DESIGN.md's Open Question decision).
func (s *SQLiteStore) RecordLicenseReleased(ctx context.Context, meetingID int64, externalLicenseID string) error {
	s.logger.Debug("recording license release", slog.Int64("meeting_id", meetingID))

	now := time.Now().Unix()

	_, err := s.licenseStmts.insertReleased.ExecContext(ctx, meetingID, externalLicenseID, now, now)
	if err != nil {
		return fmt.Errorf("record license released for meeting %d: %w", meetingID, err)
	}

	return nil
}

// GetLicenseByMeeting returns the most recent license bookkeeping row for
// meetingID, or (nil, nil) if none exists.
func (s *SQLiteStore) GetLicenseByMeeting(ctx context.Context, meetingID int64) (*License, error) {
	row := s.licenseStmts.getByMeeting.QueryRowContext(ctx, meetingID)

	l := &License{}

	var releasedAt sql.NullInt64

	var createdAt int64

	err := row.Scan(&l.ID, &l.MeetingID, &l.ExternalLicenseID, &releasedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get license by meeting %d: %w", meetingID, err)
	}

	l.CreatedAt = time.Unix(createdAt, 0).UTC()

	if releasedAt.Valid {
		t := time.Unix(releasedAt.Int64, 0).UTC()
		l.ReleasedAt = &t
	}

	return l, nil
}

// Close closes all prepared statements and the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing store database")

	stmts := []*sql.Stmt{
		s.meetingStmts.getByID, s.meetingStmts.getByExternalID, s.meetingStmts.insert,
		s.meetingStmts.updateCourse, s.meetingStmts.markCompleted, s.meetingStmts.listByTimeRange,
		s.recordingStmts.getByExternalID, s.recordingStmts.getByID, s.recordingStmts.insert,
		s.recordingStmts.updateArtifact, s.recordingStmts.incrementRetry, s.recordingStmts.updateWakeup,
		s.recordingStmts.listWakeupCandidates, s.recordingStmts.listPendingWithoutArtifact,
		s.recordingStmts.listPendingAll, s.recordingStmts.getLatestByMeeting,
		s.licenseStmts.insertReleased, s.licenseStmts.getByMeeting,
	}

	var errs []string

	for _, stmt := range stmts {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close statements: %s", strings.Join(errs, "; "))
	}

	return s.db.Close()
}
