package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/artifact"
	"github.com/acme-edu/recording-pipeline/internal/courseresolve"
	"github.com/acme-edu/recording-pipeline/internal/forum"
	"github.com/acme-edu/recording-pipeline/internal/store"
	"github.com/acme-edu/recording-pipeline/internal/webhook"
)

// previewWaitTimeout/previewWaitInterval bound the best-effort poll for the
// object store to finish generating a thumbnail before publishing, per
// spec §4.7/§9: "Preview-wait is best-effort" — the pipeline must never
// fail because a thumbnail hasn't rendered yet, only because the artifact
// itself doesn't exist.
const (
	previewWaitTimeout  = 120 * time.Second
	previewWaitInterval = 10 * time.Second
)

// ProcessCompletedRecording is the Coordinator's webhook entry point,
// satisfying webhook.Coordinator.
func (c *Coordinator) ProcessCompletedRecording(ctx context.Context, event webhook.Event) (map[string]any, error) {
	obj := event.Payload.Object

	return c.handleRecording(ctx, obj.ID, obj.Topic, fromWebhookFiles(obj.RecordingFiles), event.DownloadToken, false)
}

// ProcessMeetingRecordings re-fetches externalMeetingID's current recording
// listing from the conferencing provider and runs it through the same
// state machine, used by internal/retryengine's "full" and
// "forceRedownload" manual-retry modes (spec §4.8) where the original
// webhook payload may be stale or unavailable.
func (c *Coordinator) ProcessMeetingRecordings(ctx context.Context, externalMeetingID string, forceRedownload bool) (map[string]any, error) {
	meetingObj, err := c.conferencing.GetMeeting(ctx, externalMeetingID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetching meeting %s: %w", externalMeetingID, err)
	}

	return c.handleRecording(ctx, meetingObj.ID, meetingObj.Topic, fromConferencingFiles(meetingObj.RecordingFiles), "", forceRedownload)
}

// handleRecording implements spec §4.7's full state machine: duplicate
// in-flight short-circuit, meeting resolution/synthesis, MP4 selection,
// two idempotency short-circuits (existing Recording row, object-store tag
// lookup), and finally the full download-upload-publish pipeline.
func (c *Coordinator) handleRecording(
	ctx context.Context, externalMeetingID, topic string, files []FileCandidate, downloadToken string, forceRedownload bool,
) (map[string]any, error) {
	if !c.guards.InFlight.Acquire(externalMeetingID) {
		return map[string]any{"status": "in-flight"}, nil
	}
	defer c.guards.InFlight.Release(externalMeetingID)

	meeting, err := c.store.GetMeetingByExternalID(ctx, externalMeetingID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading meeting %s: %w", externalMeetingID, err)
	}

	if meeting == nil {
		meeting, err = c.synthesizeMeeting(ctx, externalMeetingID, topic)
		if err != nil {
			if errors.Is(err, courseresolve.ErrNoCourseResolved) {
				return map[string]any{"status": "ignored", "reason": "no-course-resolved"}, nil
			}

			return nil, err
		}
	}

	selected, ok := SelectMP4(files)
	if !ok {
		return map[string]any{"status": "ignored", "reason": "no-drive-url-found"}, nil
	}

	if !forceRedownload {
		if result, handled, err := c.shortCircuitIfAlreadyIngested(ctx, meeting, *selected); err != nil || handled {
			return result, err
		}
	}

	return c.runFullPipeline(ctx, meeting, *selected, downloadToken)
}

// synthesizeMeeting resolves topic to a course and inserts a new Meeting
// row, per spec §4.7's "meeting unknown" branch.
func (c *Coordinator) synthesizeMeeting(ctx context.Context, externalMeetingID, topic string) (*store.Meeting, error) {
	courseID, err := c.resolver.Resolve(ctx, topic)
	if err != nil {
		return nil, err
	}

	cid := int64(courseID)
	newMeeting := &store.Meeting{
		ExternalMeetingID: externalMeetingID,
		Topic:             topic,
		CourseID:          &cid,
		Status:            store.MeetingScheduled,
	}

	id, err := c.store.InsertMeeting(ctx, newMeeting)
	if err != nil {
		return nil, fmt.Errorf("pipeline: synthesizing meeting %s: %w", externalMeetingID, err)
	}

	newMeeting.ID = id

	return newMeeting, nil
}

// shortCircuitIfAlreadyIngested implements spec §4.7's two idempotency
// checks ahead of the expensive download/upload path: an existing
// Recording row for this external recording id, or an object-store file
// already tagged with it (an earlier run that uploaded but crashed before
// persisting). Either short-circuits to "done" without touching the
// network again beyond the single lookup call.
func (c *Coordinator) shortCircuitIfAlreadyIngested(
	ctx context.Context, meeting *store.Meeting, file FileCandidate,
) (result map[string]any, handled bool, err error) {
	existing, err := c.store.GetRecordingByExternalID(ctx, file.ID)
	if err != nil {
		return nil, false, fmt.Errorf("pipeline: checking existing recording %s: %w", file.ID, err)
	}

	if existing != nil {
		if err := c.finalizeAlreadyDone(ctx, meeting); err != nil {
			return nil, false, err
		}

		return map[string]any{"status": "done", "driveUrl": existing.ArtifactURL}, true, nil
	}

	found, err := c.objectStore.FindByExternalRecordingID(ctx, file.ID)
	if err != nil {
		return nil, false, fmt.Errorf("pipeline: checking object store tag %s: %w", file.ID, err)
	}

	if found == nil {
		return nil, false, nil
	}

	rec := &store.Recording{MeetingID: meeting.ID, ExternalRecordingID: file.ID, ArtifactURL: found.ViewURL}
	if _, err := c.store.InsertRecording(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("pipeline: persisting recovered recording %s: %w", file.ID, err)
	}

	if err := c.finalizeAlreadyDone(ctx, meeting); err != nil {
		return nil, false, err
	}

	return map[string]any{"status": "done", "driveUrl": found.ViewURL}, true, nil
}

// finalizeAlreadyDone marks meeting completed and releases its license if
// this is the first time a Recording has been attached to it.
func (c *Coordinator) finalizeAlreadyDone(ctx context.Context, meeting *store.Meeting) error {
	if meeting.Status == store.MeetingCompleted {
		return nil
	}

	if err := c.store.MarkMeetingCompleted(ctx, meeting.ID); err != nil {
		return fmt.Errorf("pipeline: marking meeting %d completed: %w", meeting.ID, err)
	}

	meeting.Status = store.MeetingCompleted
	c.releaseLicense(ctx, meeting)

	return nil
}

// releaseLicense calls the license pool's release hook and records the
// outcome, logging and continuing on failure per spec §4.7/§1: a failed
// release never unwinds an otherwise-successful publish. A null
// LicenseRef is a no-op, not an error (DESIGN.md's recorded Open Question
// decision).
func (c *Coordinator) releaseLicense(ctx context.Context, meeting *store.Meeting) {
	if meeting.LicenseRef == "" {
		return
	}

	if err := c.license.Release(ctx, meeting.LicenseRef); err != nil {
		c.logger.Warn("pipeline: license release failed, continuing",
			slog.String("meeting_external_id", meeting.ExternalMeetingID), slog.String("error", err.Error()))

		return
	}

	if err := c.store.RecordLicenseReleased(ctx, meeting.ID, meeting.LicenseRef); err != nil {
		c.logger.Warn("pipeline: recording license release outcome failed",
			slog.Int64("meeting_id", meeting.ID), slog.String("error", err.Error()))
	}
}

// runFullPipeline performs spec §4.7's full ingestion: download, ensure
// destination folder, upload under the upload semaphore, best-effort
// preview wait, pre-publish delay, forum discussion post, and persistence,
// always deleting the local file afterward regardless of outcome.
func (c *Coordinator) runFullPipeline(ctx context.Context, meeting *store.Meeting, file FileCandidate, downloadToken string) (map[string]any, error) {
	fileName := buildFileName(meeting.Topic, c.clock.Now(), file.ID)
	localPath := filepath.Join(c.cfg.Storage.DownloadsDir, fileName)

	lock := c.guards.PathLocks.Lock(localPath)
	lock.Lock()
	defer lock.Unlock()
	defer os.Remove(localPath)

	minExpected := int64(c.cfg.Validation.MinExpectedSizeMB) * 1024 * 1024

	if _, err := c.downloader.Download(ctx, file.DownloadURL, localPath, downloadToken, file.FileSize, minExpected); err != nil {
		return nil, fmt.Errorf("pipeline: downloading %s: %w", file.ID, err)
	}

	var courseID int64
	if meeting.CourseID != nil {
		courseID = *meeting.CourseID
	}

	folderID, err := c.objectStore.EnsureDestinationPath(ctx, strconv.FormatInt(courseID, 10), c.clock.Now().Format("2006-01"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: ensuring destination folder: %w", err)
	}

	uploadResult, err := c.uploadUnderSemaphore(ctx, localPath, fileName, folderID, meeting, courseID, file)
	if err != nil {
		return nil, fmt.Errorf("pipeline: uploading %s: %w", file.ID, err)
	}

	if err := c.objectStore.GrantPermissions(ctx, uploadResult.FileID); err != nil {
		c.logger.Warn("pipeline: grant permissions failed, continuing",
			slog.String("file_id", uploadResult.FileID), slog.String("error", err.Error()))
	}

	c.waitForPreview(ctx, uploadResult.FileID)

	if delay := c.cfg.Server.PrePublishDelay(); delay > 0 {
		if err := c.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	if err := c.publishDiscussion(ctx, meeting, courseID, file, uploadResult.ViewURL); err != nil {
		return nil, fmt.Errorf("pipeline: publishing discussion: %w", err)
	}

	if err := c.persistRecording(ctx, meeting.ID, file.ID, uploadResult.ViewURL); err != nil {
		return nil, fmt.Errorf("pipeline: persisting recording %s: %w", file.ID, err)
	}

	if err := c.store.MarkMeetingCompleted(ctx, meeting.ID); err != nil {
		return nil, fmt.Errorf("pipeline: marking meeting %d completed: %w", meeting.ID, err)
	}

	meeting.Status = store.MeetingCompleted
	c.releaseLicense(ctx, meeting)

	return map[string]any{"status": "done", "driveUrl": uploadResult.ViewURL}, nil
}

// persistRecording inserts a new Recording row, or — when one already
// exists for externalRecordingID (the forceRedownload manual-retry path
// re-ingesting a recording the store already has a row for) — overwrites
// its artifact URL in place, since external_recording_id is unique and a
// second INSERT would violate that constraint.
func (c *Coordinator) persistRecording(ctx context.Context, meetingID int64, externalRecordingID, artifactURL string) error {
	existing, err := c.store.GetRecordingByExternalID(ctx, externalRecordingID)
	if err != nil {
		return err
	}

	if existing != nil {
		return c.store.UpdateRecordingArtifact(ctx, existing.ID, artifactURL)
	}

	_, err = c.store.InsertRecording(ctx, &store.Recording{
		MeetingID: meetingID, ExternalRecordingID: externalRecordingID, ArtifactURL: artifactURL,
	})

	return err
}

func (c *Coordinator) uploadUnderSemaphore(
	ctx context.Context, localPath, fileName, folderID string, meeting *store.Meeting, courseID int64, file FileCandidate,
) (*artifact.UploadResult, error) {
	if err := c.guards.UploadSemaphore.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.guards.UploadSemaphore.Release()

	tags := map[string]string{
		"meetingId":           meeting.ExternalMeetingID,
		"courseId":            strconv.FormatInt(courseID, 10),
		"externalRecordingId": file.ID,
	}

	return c.objectStore.Upload(ctx, localPath, fileName, folderID, tags)
}

// waitForPreview polls the object store's metadata for a rendered
// thumbnail, giving up silently after previewWaitTimeout — per spec §9 this
// must never fail the pipeline, only delay the publish step slightly.
func (c *Coordinator) waitForPreview(ctx context.Context, fileID string) {
	deadline := c.clock.Now().Add(previewWaitTimeout)

	for c.clock.Now().Before(deadline) {
		meta, err := c.objectStore.GetMetadata(ctx, fileID)
		if err == nil && meta != nil && meta.HasThumbnail {
			return
		}

		if err := c.clock.Sleep(ctx, previewWaitInterval); err != nil {
			return
		}
	}

	c.logger.Debug("pipeline: preview not ready within wait window, publishing anyway", slog.String("file_id", fileID))
}

// publishDiscussion resolves the course's destination forum and posts a
// new discussion embedding the preview player, per spec §4.7/§6.
func (c *Coordinator) publishDiscussion(ctx context.Context, meeting *store.Meeting, courseID int64, file FileCandidate, viewURL string) error {
	forumID, err := c.forum.ResolveForumID(ctx, int(courseID))
	if err != nil {
		return fmt.Errorf("resolving forum for course %d: %w", courseID, err)
	}

	subject := fmt.Sprintf("%s | %s [%s]", meeting.Topic, c.clock.Now().Format("2006-01-02"), file.ID)
	message := forum.BuildEmbed(forum.PreviewURL(viewURL))

	if _, err := c.forum.CreateDiscussion(ctx, forumID, subject, message); err != nil {
		return fmt.Errorf("posting discussion to forum %d: %w", forumID, err)
	}

	return nil
}
