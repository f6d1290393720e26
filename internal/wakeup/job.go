// Package wakeup implements spec §4.9's Preview Wakeup Job: a scheduled
// daily sweep that nudges the object store's thumbnail pipeline for
// recently-published recordings, using the same panic-guarded
// background-work idiom as a throttled one-shot check, generalized into a
// ticking daily loop.
package wakeup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/objectstore"
	"github.com/acme-edu/recording-pipeline/internal/store"
)

// giveUpAttempts is the wakeupAttempts value a vanished file or a
// stuck-processing thumbnail is marked with, per spec §4.9's literal
// "mark wakeupAttempts = 2 (give up gracefully)" — matching
// store.ListWakeupCandidates' hardcoded "wakeup_attempts < 2" selection bound.
const giveUpAttempts = 2

// ObjectStore is the subset of *objectstore.Client the Job depends on.
type ObjectStore interface {
	GetMetadata(ctx context.Context, fileID string) (*objectstore.Metadata, error)
	ProbeHead(ctx context.Context, viewURL string) error
}

// Store is the subset of *store.SQLiteStore the Job depends on.
type Store interface {
	ListWakeupCandidates(ctx context.Context, windowStart, windowEnd, reattemptCutoff time.Time) ([]*store.Recording, error)
	UpdateWakeup(ctx context.Context, recordingID int64, attempts int, lastWakeupAt time.Time) error
}

// Job runs spec §4.9's scheduled sweep.
type Job struct {
	store       Store
	objectStore ObjectStore
	clock       clock.Clock
	cfg         config.WakeupConfig
	logger      *slog.Logger
}

// NewJob builds a Job.
func NewJob(st Store, objStore ObjectStore, clk clock.Clock, cfg config.WakeupConfig, logger *slog.Logger) *Job {
	return &Job{store: st, objectStore: objStore, clock: clk, cfg: cfg, logger: logger}
}

// reattemptAfter returns the configured minimum gap between wakeup
// attempts, defaulting to 90 minutes per spec §4.9.
func (j *Job) reattemptAfter() time.Duration {
	if j.cfg.ReattemptAfterMs <= 0 {
		return 90 * time.Minute
	}

	return time.Duration(j.cfg.ReattemptAfterMs) * time.Millisecond
}

// RunLoop sleeps until each scheduled firing and runs one sweep, until ctx
// is canceled. Panics within a single sweep are recovered so one bad sweep
// never takes down the scheduler.
func (j *Job) RunLoop(ctx context.Context) {
	hour, minute, err := parseDailySchedule(j.cfg.Schedule)
	if err != nil {
		j.logger.Error("wakeup: invalid schedule, falling back to 02:00", slog.String("error", err.Error()))

		hour, minute = defaultHour, defaultMinute
	}

	for {
		wait := nextRun(j.clock.Now(), hour, minute).Sub(j.clock.Now())

		if err := j.clock.Sleep(ctx, wait); err != nil {
			return
		}

		j.runOnceGuarded(ctx)
	}
}

func (j *Job) runOnceGuarded(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("wakeup: panic during sweep", slog.Any("panic", r))
		}
	}()

	processed, gaveUp, err := j.Run(ctx)
	if err != nil {
		j.logger.Error("wakeup: sweep failed", slog.String("error", err.Error()))
		return
	}

	j.logger.Info("wakeup: sweep complete", slog.Int("processed", processed), slog.Int("gave_up", gaveUp))
}

// Run performs a single sweep: select candidates in the previous calendar
// day window and process each one. Returns the number of candidates
// processed and how many were marked given-up.
func (j *Job) Run(ctx context.Context) (processed, gaveUp int, err error) {
	now := j.clock.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := todayStart.AddDate(0, 0, -1)
	windowEnd := todayStart
	reattemptCutoff := now.Add(-j.reattemptAfter())

	candidates, err := j.store.ListWakeupCandidates(ctx, windowStart, windowEnd, reattemptCutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("wakeup: listing candidates: %w", err)
	}

	for _, rec := range candidates {
		if j.processOne(ctx, rec) {
			gaveUp++
		}

		processed++
	}

	return processed, gaveUp, nil
}

// processOne handles a single Recording candidate, per spec §4.9's
// extract-id/fetch-metadata/give-up-or-nudge/always-update sequence.
// Returns true if the candidate was marked given-up.
func (j *Job) processOne(ctx context.Context, rec *store.Recording) bool {
	now := j.clock.Now()

	fileID, ok := extractArtifactID(rec.ArtifactURL)
	if !ok {
		j.logger.Warn("wakeup: could not extract artifact id, giving up",
			slog.Int64("recording_id", rec.ID), slog.String("artifact_url", rec.ArtifactURL))

		j.updateWakeup(ctx, rec.ID, giveUpAttempts, now)

		return true
	}

	meta, err := j.objectStore.GetMetadata(ctx, fileID)
	if err != nil {
		j.logger.Warn("wakeup: fetching metadata failed, giving up",
			slog.Int64("recording_id", rec.ID), slog.String("error", err.Error()))

		j.updateWakeup(ctx, rec.ID, giveUpAttempts, now)

		return true
	}

	if meta == nil {
		j.logger.Info("wakeup: artifact no longer found, giving up", slog.Int64("recording_id", rec.ID))

		j.updateWakeup(ctx, rec.ID, giveUpAttempts, now)

		return true
	}

	if meta.HasThumbnail && meta.Status != "ready" {
		j.logger.Info("wakeup: thumbnail stuck in processing, giving up",
			slog.Int64("recording_id", rec.ID), slog.String("status", meta.Status))

		j.updateWakeup(ctx, rec.ID, giveUpAttempts, now)

		return true
	}

	if err := j.objectStore.ProbeHead(ctx, rec.ArtifactURL); err != nil {
		j.logger.Warn("wakeup: probe head failed, continuing",
			slog.Int64("recording_id", rec.ID), slog.String("error", err.Error()))
	}

	if _, err := j.objectStore.GetMetadata(ctx, fileID); err != nil {
		j.logger.Warn("wakeup: re-fetching metadata after probe failed",
			slog.Int64("recording_id", rec.ID), slog.String("error", err.Error()))
	}

	j.updateWakeup(ctx, rec.ID, rec.WakeupAttempts+1, now)

	return false
}

func (j *Job) updateWakeup(ctx context.Context, recordingID int64, attempts int, at time.Time) {
	if err := j.store.UpdateWakeup(ctx, recordingID, attempts, at); err != nil {
		j.logger.Error("wakeup: persisting wakeup state failed",
			slog.Int64("recording_id", recordingID), slog.String("error", err.Error()))
	}
}
