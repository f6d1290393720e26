package retryengine

import (
	"context"
	"fmt"

	"github.com/acme-edu/recording-pipeline/internal/store"
)

// target is a resolved selector: the Meeting/Recording rows (either may be
// nil) a Request's selector maps to, per spec §4.8's
// "{recording?, meeting?, topic?, externalIds…}" tuple.
type target struct {
	meeting        *store.Meeting
	recording      *store.Recording
	notFound       bool
	notFoundReason string
}

func (t target) externalMeetingID() string {
	if t.meeting != nil {
		return t.meeting.ExternalMeetingID
	}

	return ""
}

func (t target) externalRecordingID() string {
	if t.recording != nil {
		return t.recording.ExternalRecordingID
	}

	return ""
}

func (t target) hasArtifact() bool {
	return t.recording != nil && t.recording.ArtifactURL != ""
}

// resolveTarget maps a single-selector Request to its target row(s), per
// spec §4.8's target resolution step. Used for all selectors except the
// {from, to} time-range, which resolves a list via store.ListMeetingsByTimeRange.
func (e *Engine) resolveTarget(ctx context.Context, req Request) (target, error) {
	switch {
	case req.ExternalRecordingID != "":
		rec, err := e.store.GetRecordingByExternalID(ctx, req.ExternalRecordingID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving recording %s: %w", req.ExternalRecordingID, err)
		}

		if rec == nil {
			return target{notFound: true, notFoundReason: "recording-not-found"}, nil
		}

		meeting, err := e.store.GetMeeting(ctx, rec.MeetingID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving meeting %d: %w", rec.MeetingID, err)
		}

		return target{meeting: meeting, recording: rec}, nil

	case req.InternalMeetingID != nil:
		meeting, err := e.store.GetMeeting(ctx, *req.InternalMeetingID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving meeting %d: %w", *req.InternalMeetingID, err)
		}

		if meeting == nil {
			return target{notFound: true, notFoundReason: "meeting-not-found"}, nil
		}

		rec, err := e.store.GetLatestRecordingByMeeting(ctx, meeting.ID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving recording for meeting %d: %w", meeting.ID, err)
		}

		return target{meeting: meeting, recording: rec}, nil

	case req.ExternalMeetingID != "":
		meeting, err := e.store.GetMeetingByExternalID(ctx, req.ExternalMeetingID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving meeting %s: %w", req.ExternalMeetingID, err)
		}

		// A meeting unknown locally is not an error here: dispatchFull hands
		// the bare externalMeetingId to the conferencing provider, which
		// mirrors §4.7's "meeting unknown" synthesis branch.
		if meeting == nil {
			return target{}, nil
		}

		rec, err := e.store.GetLatestRecordingByMeeting(ctx, meeting.ID)
		if err != nil {
			return target{}, fmt.Errorf("retryengine: resolving recording for meeting %d: %w", meeting.ID, err)
		}

		return target{meeting: meeting, recording: rec}, nil
	}

	return target{}, fmt.Errorf("retryengine: no selector set")
}

// determineMode implements spec §4.8's mode-determination table.
func determineMode(req Request, t target) string {
	if req.ForceRedownload {
		return modeFull
	}

	if req.Republish && t.hasArtifact() {
		return modeRepublish
	}

	return modeFull
}
