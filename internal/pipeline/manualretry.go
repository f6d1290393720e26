package pipeline

import (
	"context"
	"fmt"
)

// Republish re-posts the forum discussion for an already-ingested recording
// without re-downloading or re-uploading the artifact, per spec §4.8's
// "republish" manual-retry mode and its worked example: a forced repost
// with no prior discussion is treated identically to a normal post (an
// Open Question decision recorded in DESIGN.md) — there is no "discussion
// already exists" state tracked anywhere, so every Republish call simply
// creates a new one.
func (c *Coordinator) Republish(ctx context.Context, externalRecordingID string) (map[string]any, error) {
	rec, err := c.store.GetRecordingByExternalID(ctx, externalRecordingID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: republish: loading recording %s: %w", externalRecordingID, err)
	}

	if rec == nil {
		return map[string]any{"mode": "republish", "status": "error", "reason": "recording-not-found"}, nil
	}

	meeting, err := c.store.GetMeeting(ctx, rec.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: republish: loading meeting %d: %w", rec.MeetingID, err)
	}

	if meeting == nil {
		return map[string]any{"mode": "republish", "status": "error", "reason": "meeting-not-found"}, nil
	}

	var courseID int64
	if meeting.CourseID != nil {
		courseID = *meeting.CourseID
	}

	file := FileCandidate{ID: rec.ExternalRecordingID}

	if err := c.publishDiscussion(ctx, meeting, courseID, file, rec.ArtifactURL); err != nil {
		return nil, fmt.Errorf("pipeline: republish: %w", err)
	}

	if err := c.store.IncrementRetry(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("pipeline: republish: incrementing retry count: %w", err)
	}

	return map[string]any{"mode": "republish", "status": "ok", "reason": "republished-successfully"}, nil
}
