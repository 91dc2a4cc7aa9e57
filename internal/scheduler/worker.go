package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/makeasinger/genqueue/internal/model"
)

// run is the worker's private view of the job it is executing.
type run struct {
	job      *model.Job
	id       string
	provider string
	request  model.GenerationRequest
	started  model.Job
	ctx      context.Context
	cancel   context.CancelFunc
	// parent is the worker's context; it ends only on shutdown
	parent context.Context
}

type outcome struct {
	status   model.JobStatus
	versions []model.Version
	message  string
}

// Run is the single worker loop. It blocks until ctx is done; a job in
// flight at that point is cancelled before Run returns.
func (e *Engine) Run(ctx context.Context) {
	stop := make(chan struct{})
	dispatched := make(chan struct{})
	e.dispatching.Store(true)
	go func() {
		e.dispatch(stop)
		close(dispatched)
	}()
	defer func() {
		e.dispatching.Store(false)
		close(stop)
		<-dispatched
	}()

	slog.Info("scheduler started", "poll_interval", e.pollInterval.String())
	defer slog.Info("scheduler stopped")

	for {
		r := e.claim(ctx)
		if r == nil {
			select {
			case <-ctx.Done():
				return
			case <-e.wake:
			}
			continue
		}
		e.execute(r)
	}
}

// claim moves the head job into processing when the resource is free.
func (e *Engine) claim(ctx context.Context) *run {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Err() != nil || e.active != nil {
		return nil
	}
	head := e.queue.PeekHead()
	if head == nil {
		return nil
	}
	if err := e.registry.Acquire(); err != nil {
		slog.Debug("provider reserved, waiting", "job_id", head.ID, "error", err)
		return nil
	}

	name := e.registry.Resolve(head.Request.ProviderName())
	if err := head.Start(name, e.now()); err != nil {
		e.registry.Release()
		slog.Error("failed to start job", "job_id", head.ID, "error", err)
		return nil
	}

	jctx, cancel := context.WithCancel(ctx)
	e.active = &activeJob{job: head, cancel: cancel}

	snap := head.Snapshot()
	return &run{
		job:      head,
		id:       head.ID,
		provider: name,
		request:  snap.Request,
		started:  snap,
		ctx:      jctx,
		cancel:   cancel,
		parent:   ctx,
	}
}

func (e *Engine) execute(r *run) {
	defer r.cancel()
	slog.Info("job started", "job_id", r.id, "provider", r.provider)
	e.emit(model.JobEventStarted, r.started)

	handle, err := e.registry.Ensure(r.ctx, r.provider)
	if err != nil {
		e.finish(r, e.abort(r, err))
		return
	}

	remote, err := e.client.Submit(r.ctx, handle, r.request)
	if err != nil {
		e.finish(r, e.abort(r, fmt.Errorf("submit generation: %w", err)))
		return
	}

	e.finish(r, e.await(r, remote))
}

// abort turns a setup error into an outcome, preferring cancellation when
// the job was cancelled while the error happened.
func (e *Engine) abort(r *run, err error) outcome {
	if r.ctx.Err() != nil {
		return outcome{status: model.JobStatusCancelled}
	}
	return outcome{status: model.JobStatusFailed, message: err.Error()}
}

// await polls the backend until the generation finishes or the job's
// context is cancelled.
func (e *Engine) await(r *run, remote string) outcome {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-r.ctx.Done():
			return e.acknowledgeCancel(r, remote)
		case <-ticker.C:
		}

		upd, err := e.client.Poll(r.ctx, remote)
		if err != nil {
			if r.ctx.Err() != nil {
				continue
			}
			failures++
			slog.Warn("poll failed", "job_id", r.id, "attempt", failures, "error", err)
			if failures >= e.maxPollErrors {
				return outcome{status: model.JobStatusFailed, message: fmt.Sprintf("poll generation: %v", err)}
			}
			continue
		}
		failures = 0

		e.recordProgress(r, upd.Progress, upd.CurrentStep)

		switch upd.State {
		case model.GenerationStateCompleted:
			if len(upd.Versions) == 0 {
				return outcome{status: model.JobStatusFailed, message: "generation completed without versions"}
			}
			return outcome{status: model.JobStatusCompleted, versions: upd.Versions}
		case model.GenerationStateFailed:
			msg := upd.Error
			if msg == "" {
				msg = "generation failed"
			}
			return outcome{status: model.JobStatusFailed, message: msg}
		case model.GenerationStateCancelled:
			return outcome{status: model.JobStatusCancelled}
		}
	}
}

// acknowledgeCancel tells the backend to stop and keeps the job processing
// until it confirms, either by accepting the cancel or by reporting a
// terminal state. A backend that never answers stalls the queue; only
// shutdown gives up on it.
func (e *Engine) acknowledgeCancel(r *run, remote string) outcome {
	for attempt := 1; ; attempt++ {
		err := e.tryCancel(remote)
		if err == nil {
			return outcome{status: model.JobStatusCancelled}
		}
		if state, ok := e.remoteState(remote); ok && state.IsTerminal() {
			slog.Info("generation stopped before cancel was acknowledged", "job_id", r.id, "state", state)
			return outcome{status: model.JobStatusCancelled}
		}

		if r.parent.Err() != nil {
			slog.Warn("shutting down with cancel unacknowledged", "job_id", r.id, "error", err)
			return outcome{status: model.JobStatusCancelled}
		}
		slog.Warn("cancel not acknowledged, retrying", "job_id", r.id, "attempt", attempt, "error", err)

		select {
		case <-r.parent.Done():
		case <-time.After(e.pollInterval):
		}
	}
}

func (e *Engine) tryCancel(remote string) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cancelTimeout)
	defer cancel()
	return e.client.Cancel(ctx, remote)
}

func (e *Engine) remoteState(remote string) (model.GenerationState, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cancelTimeout)
	defer cancel()
	upd, err := e.client.Poll(ctx, remote)
	if err != nil {
		return "", false
	}
	return upd.State, true
}

func (e *Engine) recordProgress(r *run, progress float64, step string) {
	e.mu.Lock()
	changed := r.job.UpdateProgress(progress, step)
	snap := r.job.Snapshot()
	e.mu.Unlock()
	if changed {
		e.emit(model.JobEventProgress, snap)
	}
}

// finish applies the terminal transition and frees the worker.
func (e *Engine) finish(r *run, out outcome) {
	e.mu.Lock()
	now := e.now()
	var err error
	switch out.status {
	case model.JobStatusCompleted:
		err = r.job.Complete(out.versions, now)
	case model.JobStatusFailed:
		err = r.job.Fail(out.message, now)
	default:
		err = r.job.Cancel(now)
	}
	if err != nil {
		slog.Error("terminal transition failed", "job_id", r.id, "error", err)
		if !r.job.Status.IsTerminal() {
			_ = r.job.Fail(err.Error(), now)
		}
	}

	before := e.positionsLocked()
	if _, err := e.queue.Remove(r.id); err != nil {
		slog.Error("failed to dequeue finished job", "job_id", r.id, "error", err)
	}
	removed := e.active != nil && e.active.remove
	if removed {
		e.store.Delete(r.id)
		e.removed[r.id] = now
	}
	e.active = nil
	snap := r.job.Snapshot()
	moved := e.movedLocked(before)
	e.mu.Unlock()

	e.registry.Release()
	e.signal()

	switch snap.Status {
	case model.JobStatusCompleted:
		slog.Info("job completed", "job_id", r.id, "versions", len(snap.Versions))
		e.emit(model.JobEventCompleted, snap)
	case model.JobStatusFailed:
		slog.Warn("job failed", "job_id", r.id, "error", snap.Error)
		e.emit(model.JobEventFailed, snap)
	default:
		slog.Info("job cancelled", "job_id", r.id, "was", model.JobStatusProcessing)
		e.emit(model.JobEventCancelled, snap)
	}
	if removed {
		e.emit(model.JobEventRemoved, snap)
	}
	for _, j := range moved {
		e.emit(model.JobEventProgress, j)
	}
}
