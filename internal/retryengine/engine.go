package retryengine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/acme-edu/recording-pipeline/internal/guard"
	"github.com/acme-edu/recording-pipeline/internal/store"
)

// PipelineCoordinator is the subset of *pipeline.Coordinator the Engine
// depends on.
type PipelineCoordinator interface {
	ProcessMeetingRecordings(ctx context.Context, externalMeetingID string, forceRedownload bool) (map[string]any, error)
	Republish(ctx context.Context, externalRecordingID string) (map[string]any, error)
}

// Engine implements spec §4.8's Manual Retry Engine, dispatching every
// resolved target to internal/pipeline's Coordinator rather than
// duplicating its download/upload/publish logic.
type Engine struct {
	store      *store.SQLiteStore
	pipeline   PipelineCoordinator
	retryGuard *guard.RetryGuard
}

// NewEngine builds an Engine.
func NewEngine(st *store.SQLiteStore, coordinator PipelineCoordinator, retryGuard *guard.RetryGuard) *Engine {
	return &Engine{store: st, pipeline: coordinator, retryGuard: retryGuard}
}

// Execute resolves req's selector, determines mode, and dispatches to one
// or more targets, returning one Result per target. A combined error of any
// per-target execution failures is also returned for logging, but never
// causes a target to be omitted from results (spec §4.8: "failures in one
// target do not abort the batch").
func (e *Engine) Execute(ctx context.Context, req Request) ([]Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.isTimeRange() {
		return e.executeTimeRange(ctx, req)
	}

	return e.executeSingle(ctx, req)
}

func (e *Engine) executeSingle(ctx context.Context, req Request) ([]Result, error) {
	key := selectorKey(req)

	raw, alreadyInProgress, err := e.retryGuard.Do(key, func() (any, error) {
		return e.resolveAndDispatch(ctx, req, key)
	})

	if alreadyInProgress {
		return []Result{{Selector: key, Status: statusSkipped, Reason: reasonAlreadyInProgress}}, nil
	}

	result, ok := raw.(Result)
	if !ok {
		result = Result{Selector: key, Status: statusFailed}

		if err != nil {
			result.Reason = err.Error()
		}
	}

	return []Result{result}, err
}

// resolveAndDispatch resolves req's single-selector target and runs it
// through mode determination and dispatch. Run under e.retryGuard so a
// concurrent duplicate call for the same selector observes
// already-in-progress rather than racing the store/pipeline.
func (e *Engine) resolveAndDispatch(ctx context.Context, req Request, key string) (Result, error) {
	t, err := e.resolveTarget(ctx, req)
	if err != nil {
		return Result{Selector: key, Status: statusFailed, Reason: err.Error()}, err
	}

	if t.notFound {
		return Result{Selector: key, Status: statusFailed, Reason: t.notFoundReason}, nil
	}

	mode := determineMode(req, t)

	if req.DryRun {
		return Result{
			Selector: key, Mode: mode,
			ExternalMeetingID: t.externalMeetingID(), ExternalRecordingID: t.externalRecordingID(),
			Status: statusSkipped, Reason: reasonDryRun,
		}, nil
	}

	if err := e.applyCourseOverride(ctx, req, t); err != nil {
		return Result{Selector: key, Mode: mode, Status: statusFailed, Reason: err.Error()}, err
	}

	if mode == modeFull && !req.ForceRedownload && t.hasArtifact() {
		return Result{
			Selector: key, Mode: mode,
			ExternalMeetingID: t.externalMeetingID(), ExternalRecordingID: t.externalRecordingID(),
			Status: statusSkipped, Reason: reasonAlreadyCompleted,
		}, nil
	}

	result, err := e.dispatch(ctx, req, t, mode)
	result.Selector = key

	return result, err
}

// dispatch runs the resolved mode against the pipeline Coordinator.
func (e *Engine) dispatch(ctx context.Context, req Request, t target, mode string) (Result, error) {
	if mode == modeRepublish {
		return e.dispatchRepublish(ctx, t)
	}

	return e.dispatchFull(ctx, req, t)
}

func (e *Engine) dispatchFull(ctx context.Context, req Request, t target) (Result, error) {
	externalMeetingID := t.externalMeetingID()
	if externalMeetingID == "" {
		externalMeetingID = req.ExternalMeetingID
	}

	if externalMeetingID == "" {
		return Result{Mode: modeFull, Status: statusFailed, Reason: "meeting-not-found"}, nil
	}

	res, err := e.pipeline.ProcessMeetingRecordings(ctx, externalMeetingID, req.ForceRedownload)
	if err != nil {
		return Result{Mode: modeFull, ExternalMeetingID: externalMeetingID, Status: statusFailed, Reason: err.Error()}, err
	}

	status, _ := res["status"].(string)
	reason, _ := res["reason"].(string)
	driveURL, _ := res["driveUrl"].(string)

	switch status {
	case "done":
		return Result{Mode: modeFull, ExternalMeetingID: externalMeetingID, Status: statusOK, DriveURL: driveURL}, nil
	case "ignored":
		return Result{Mode: modeFull, ExternalMeetingID: externalMeetingID, Status: statusSkipped, Reason: reason}, nil
	case "in-flight":
		return Result{Mode: modeFull, ExternalMeetingID: externalMeetingID, Status: statusSkipped, Reason: reasonAlreadyInProgress}, nil
	default:
		return Result{Mode: modeFull, ExternalMeetingID: externalMeetingID, Status: statusFailed, Reason: fmt.Sprintf("unexpected pipeline status %q", status)}, nil
	}
}

func (e *Engine) dispatchRepublish(ctx context.Context, t target) (Result, error) {
	externalRecordingID := t.externalRecordingID()

	res, err := e.pipeline.Republish(ctx, externalRecordingID)
	if err != nil {
		return Result{
			Mode: modeRepublish, ExternalMeetingID: t.externalMeetingID(), ExternalRecordingID: externalRecordingID,
			Status: statusFailed, Reason: err.Error(),
		}, err
	}

	status, _ := res["status"].(string)
	reason, _ := res["reason"].(string)

	outStatus := statusOK
	if status != "ok" {
		outStatus = statusFailed
	}

	return Result{
		Mode: modeRepublish, ExternalMeetingID: t.externalMeetingID(), ExternalRecordingID: externalRecordingID,
		Status: outStatus, Reason: reason,
	}, nil
}

// executeTimeRange implements the {from, to} backfill selector, bounded by
// req.limit(). A dryRun request never touches the store beyond the
// read-only listing call, never calls the pipeline, and mutates nothing
// (spec §8's time-range-backfill-dry-run scenario).
func (e *Engine) executeTimeRange(ctx context.Context, req Request) ([]Result, error) {
	meetings, err := e.store.ListMeetingsByTimeRange(ctx, *req.From, *req.To)
	if err != nil {
		return nil, fmt.Errorf("retryengine: listing meetings in range: %w", err)
	}

	if limit := req.limit(); len(meetings) > limit {
		meetings = meetings[:limit]
	}

	results := make([]Result, 0, len(meetings))

	var batchErr error

	for _, m := range meetings {
		result, err := e.executeTimeRangeTarget(ctx, req, m)
		if err != nil {
			batchErr = multierr.Append(batchErr, err)
		}

		results = append(results, result)
	}

	return results, batchErr
}

func (e *Engine) executeTimeRangeTarget(ctx context.Context, req Request, m *store.Meeting) (Result, error) {
	key := fmt.Sprintf("meeting:%s", m.ExternalMeetingID)

	if req.DryRun {
		return Result{Selector: key, ExternalMeetingID: m.ExternalMeetingID, Status: statusSkipped, Reason: reasonDryRun}, nil
	}

	rec, err := e.store.GetLatestRecordingByMeeting(ctx, m.ID)
	if err != nil {
		return Result{Selector: key, ExternalMeetingID: m.ExternalMeetingID, Status: statusFailed, Reason: err.Error()}, err
	}

	t := target{meeting: m, recording: rec}
	mode := determineMode(req, t)

	if mode == modeFull && !req.ForceRedownload && t.hasArtifact() {
		return Result{
			Selector: key, Mode: mode, ExternalMeetingID: m.ExternalMeetingID, ExternalRecordingID: t.externalRecordingID(),
			Status: statusSkipped, Reason: reasonAlreadyCompleted,
		}, nil
	}

	if err := e.applyCourseOverride(ctx, req, t); err != nil {
		return Result{Selector: key, Mode: mode, ExternalMeetingID: m.ExternalMeetingID, Status: statusFailed, Reason: err.Error()}, err
	}

	raw, alreadyInProgress, err := e.retryGuard.Do(key, func() (any, error) {
		return e.dispatch(ctx, req, t, mode)
	})

	if alreadyInProgress {
		return Result{Selector: key, Mode: mode, ExternalMeetingID: m.ExternalMeetingID, Status: statusSkipped, Reason: reasonAlreadyInProgress}, nil
	}

	result, _ := raw.(Result)
	result.Selector = key

	return result, err
}

// applyCourseOverride persists req.OverrideCourseID against t's resolved
// meeting ahead of dispatch, per spec §4.8's overrideCourseId flag. A nil
// OverrideCourseID or a target with no resolved meeting row (the
// {externalMeetingId} selector synthesizing a brand-new meeting) is a
// no-op — synthesis already runs the Course Resolver against the topic,
// and there is no meeting row yet for this call to update. Both
// dispatchFull and dispatchRepublish re-load their meeting row from the
// store before reading CourseID, so persisting here is sufficient for the
// override to take effect without threading it through the pipeline call
// signature.
func (e *Engine) applyCourseOverride(ctx context.Context, req Request, t target) error {
	if req.OverrideCourseID == nil || t.meeting == nil {
		return nil
	}

	if err := e.store.UpdateMeetingCourse(ctx, t.meeting.ID, *req.OverrideCourseID); err != nil {
		return fmt.Errorf("retryengine: overriding course for meeting %d: %w", t.meeting.ID, err)
	}

	t.meeting.CourseID = req.OverrideCourseID

	return nil
}

// selectorKey builds a stable RetryGuard key from req's raw selector
// fields, deduplicating concurrent manual-retry calls against the same
// requested target regardless of whether resolution later succeeds.
func selectorKey(req Request) string {
	switch {
	case req.ExternalRecordingID != "":
		return "recording:" + req.ExternalRecordingID
	case req.InternalMeetingID != nil:
		return fmt.Sprintf("meeting-id:%d", *req.InternalMeetingID)
	case req.ExternalMeetingID != "":
		return "meeting:" + req.ExternalMeetingID
	case req.isTimeRange():
		return fmt.Sprintf("range:%s-%s", req.From.Format("20060102T150405Z"), req.To.Format("20060102T150405Z"))
	default:
		return "unknown"
	}
}
