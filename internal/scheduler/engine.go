// Package scheduler owns the generation queue and drives it with a single
// worker.
//
// Every mutation of the queue or the job table happens under Engine.mu.
// The in-flight generation call runs outside the lock so API calls never
// wait for it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/makeasinger/genqueue/internal/apperr"
	"github.com/makeasinger/genqueue/internal/jobstore"
	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
	"github.com/makeasinger/genqueue/internal/queue"
)

// GenerationClient runs a request on the loaded provider
type GenerationClient interface {
	Submit(ctx context.Context, h *provider.Handle, req model.GenerationRequest) (string, error)
	Poll(ctx context.Context, handle string) (*model.GenerationUpdate, error)
	Cancel(ctx context.Context, handle string) error
}

// Observer receives job events. Publish must not block for long; it is
// called from the engine's dispatcher goroutine.
type Observer interface {
	Publish(evt model.JobEvent)
}

// Engine is the generation queue and its worker
type Engine struct {
	mu     sync.Mutex
	queue  *queue.Queue
	store  *jobstore.Store
	active *activeJob
	// removed remembers deleted job ids so a repeated Remove succeeds
	removed map[string]time.Time

	registry *provider.Registry
	client   GenerationClient
	validate *validator.Validate

	observers   []Observer
	events      chan model.JobEvent
	dispatching atomic.Bool
	stopped     chan struct{}
	wake        chan struct{}

	now           func() time.Time
	newID         func() string
	pollInterval  time.Duration
	cancelTimeout time.Duration
	maxPollErrors int
	eventBuffer   int
}

type activeJob struct {
	job    *model.Job
	cancel context.CancelFunc
	// remove deletes the job from the store once its cancel is acknowledged.
	remove bool
}

// Option configures an Engine
type Option func(*Engine)

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithCancelTimeout bounds how long the worker waits for a backend to
// acknowledge a cancel.
func WithCancelTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cancelTimeout = d
		}
	}
}

// WithMaxPollErrors sets how many consecutive poll failures fail a job.
func WithMaxPollErrors(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPollErrors = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.eventBuffer = n
		}
	}
}

func WithValidator(v *validator.Validate) Option {
	return func(e *Engine) { e.validate = v }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New creates an engine. Call Run to start the worker.
func New(registry *provider.Registry, client GenerationClient, opts ...Option) *Engine {
	e := &Engine{
		queue:         queue.New(),
		store:         jobstore.New(),
		removed:       map[string]time.Time{},
		registry:      registry,
		client:        client,
		wake:          make(chan struct{}, 1),
		stopped:       make(chan struct{}),
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
		pollInterval:  time.Second,
		cancelTimeout: 30 * time.Second,
		maxPollErrors: 3,
		eventBuffer:   256,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validate == nil {
		e.validate = validator.New()
	}
	e.events = make(chan model.JobEvent, e.eventBuffer)
	return e
}

// Submit validates req and appends a new pending job to the queue.
func (e *Engine) Submit(req model.GenerationRequest) (model.Job, error) {
	if err := e.validate.Struct(&req); err != nil {
		return model.Job{}, apperr.FromValidator("invalid generation request", err)
	}
	if name := req.ProviderName(); name != "" && !e.registry.Known(name) {
		return model.Job{}, apperr.Validation(fmt.Sprintf("unknown provider %q", name),
			map[string]string{"Provider": "oneof"})
	}

	e.mu.Lock()
	job := model.NewJob(e.newID(), req, e.now())
	if err := e.queue.Enqueue(job); err != nil {
		e.mu.Unlock()
		return model.Job{}, err
	}
	e.store.Put(job)
	snap := job.Snapshot()
	e.mu.Unlock()

	slog.Info("job queued", "job_id", snap.ID, "position", snap.Position)
	e.signal()
	e.emit(model.JobEventQueued, snap)
	return snap, nil
}

// GetStatus returns a snapshot of the job.
func (e *Engine) GetStatus(id string) (model.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.store.Get(id)
	if !ok {
		return model.Job{}, apperr.NotFound("job", id)
	}
	return job.Snapshot(), nil
}

// GetPreset returns the job's original request.
func (e *Engine) GetPreset(id string) (model.GenerationRequest, error) {
	job, err := e.GetStatus(id)
	if err != nil {
		return model.GenerationRequest{}, err
	}
	return job.Request, nil
}

// ListQueue returns the active jobs in position order. Pending jobs carry
// the provider they would run on if started now.
func (e *Engine) ListQueue() []model.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Job, 0, e.queue.Len())
	for j := range e.queue.List() {
		if j.Provider == "" {
			j.Provider = e.registry.Resolve(j.Request.ProviderName())
		}
		out = append(out, j)
	}
	return out
}

// History returns every known job with status, or all jobs when status is
// empty, newest first.
func (e *Engine) History(status model.JobStatus) []model.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	jobs := e.store.Filter(status)
	out := make([]model.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Snapshot()
	}
	return out
}

// Reorder moves a pending job to newPosition.
func (e *Engine) Reorder(id string, newPosition int) error {
	return e.move(func() error { return e.queue.Reorder(id, newPosition) })
}

// MoveUp moves a pending job one position towards the head.
func (e *Engine) MoveUp(id string) error {
	return e.move(func() error { return e.queue.MoveUp(id) })
}

// MoveDown moves a pending job one position towards the tail.
func (e *Engine) MoveDown(id string) error {
	return e.move(func() error { return e.queue.MoveDown(id) })
}

func (e *Engine) move(op func() error) error {
	e.mu.Lock()
	before := e.positionsLocked()
	if err := op(); err != nil {
		e.mu.Unlock()
		return err
	}
	moved := e.movedLocked(before)
	e.mu.Unlock()

	e.signal()
	for _, j := range moved {
		e.emit(model.JobEventProgress, j)
	}
	return nil
}

// Cancel stops a job. A pending job is cancelled at once. A processing job
// is signalled and stays processing until the backend acknowledges. Cancel
// on a finished job is a no-op.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	job, ok := e.store.Get(id)
	if !ok {
		e.mu.Unlock()
		return apperr.NotFound("job", id)
	}

	switch job.Status {
	case model.JobStatusPending:
		before := e.positionsLocked()
		if err := job.Cancel(e.now()); err != nil {
			e.mu.Unlock()
			return err
		}
		if _, err := e.queue.Remove(id); err != nil {
			e.mu.Unlock()
			return err
		}
		snap := job.Snapshot()
		moved := e.movedLocked(before)
		e.mu.Unlock()

		slog.Info("job cancelled", "job_id", id, "was", model.JobStatusPending)
		e.emit(model.JobEventCancelled, snap)
		for _, j := range moved {
			e.emit(model.JobEventProgress, j)
		}
		return nil

	case model.JobStatusProcessing:
		e.requestCancelLocked(job)
		e.mu.Unlock()
		return nil
	}

	e.mu.Unlock()
	return nil
}

// Remove deletes a job. A processing job is cancelled first and deleted
// once the cancel is acknowledged. Removing an already removed job is a
// no-op; ids never seen are NotFound.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	job, ok := e.store.Get(id)
	if !ok {
		_, gone := e.removed[id]
		e.mu.Unlock()
		if gone {
			return nil
		}
		return apperr.NotFound("job", id)
	}

	if job.Status == model.JobStatusProcessing {
		if e.active != nil && e.active.job == job {
			e.active.remove = true
		}
		e.requestCancelLocked(job)
		e.mu.Unlock()
		return nil
	}

	before := e.positionsLocked()
	if !job.Status.IsTerminal() {
		if _, err := e.queue.Remove(id); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	e.store.Delete(id)
	e.removed[id] = e.now()
	snap := job.Snapshot()
	moved := e.movedLocked(before)
	e.mu.Unlock()

	slog.Info("job removed", "job_id", id, "status", snap.Status)
	e.emit(model.JobEventRemoved, snap)
	for _, j := range moved {
		e.emit(model.JobEventProgress, j)
	}
	return nil
}

func (e *Engine) requestCancelLocked(job *model.Job) {
	if !job.RequestCancel() {
		return
	}
	if e.active != nil && e.active.job == job {
		e.active.cancel()
	}
	slog.Info("cancel requested", "job_id", job.ID)
}

// SwitchProvider loads name. It is rejected while a job is processing.
func (e *Engine) SwitchProvider(ctx context.Context, name string) error {
	e.mu.Lock()
	busy := e.active != nil
	e.mu.Unlock()
	if busy {
		return apperr.Busy("cannot switch provider while a job is processing", apperr.ErrResourceBusy)
	}
	// The worker skips claims while the switch holds the reservation
	defer e.signal()
	return e.registry.Switch(ctx, name)
}

// Providers returns the registry's provider statuses.
func (e *Engine) Providers() []provider.Status {
	return e.registry.Providers()
}

// CurrentProvider returns the loaded provider, if any.
func (e *Engine) CurrentProvider() (string, bool) {
	return e.registry.CurrentProvider()
}

// FindVersion returns a produced version and the id of its job.
func (e *Engine) FindVersion(versionID string) (model.Version, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, v, ok := e.store.FindVersion(versionID)
	if !ok {
		return model.Version{}, "", apperr.NotFound("version", versionID)
	}
	return v, job.ID, nil
}

// PruneTerminal deletes finished jobs older than maxAge and publishes a
// removed event for each.
func (e *Engine) PruneTerminal(maxAge time.Duration) int {
	e.mu.Lock()
	cutoff := e.now().Add(-maxAge)
	pruned := e.store.PruneTerminal(cutoff)
	for id, at := range e.removed {
		if at.Before(cutoff) {
			delete(e.removed, id)
		}
	}
	snaps := make([]model.Job, len(pruned))
	for i, j := range pruned {
		snaps[i] = j.Snapshot()
	}
	e.mu.Unlock()

	if len(snaps) > 0 {
		slog.Info("pruned finished jobs", "count", len(snaps))
	}
	for _, j := range snaps {
		e.emit(model.JobEventRemoved, j)
	}
	return len(snaps)
}

// RunPruner prunes finished jobs every interval until ctx is done.
func (e *Engine) RunPruner(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PruneTerminal(maxAge)
		}
	}
}

// Stats counts jobs by status.
func (e *Engine) Stats() model.QueueStats {
	e.mu.Lock()
	counts := e.store.Count()
	e.mu.Unlock()
	cur, _ := e.registry.CurrentProvider()
	return model.QueueStats{
		Pending:    counts[model.JobStatusPending],
		Processing: counts[model.JobStatusProcessing],
		Completed:  counts[model.JobStatusCompleted],
		Failed:     counts[model.JobStatusFailed],
		Cancelled:  counts[model.JobStatusCancelled],
		Provider:   cur,
		Now:        e.now(),
	}
}

func (e *Engine) positionsLocked() map[string]int {
	out := make(map[string]int, e.queue.Len())
	for j := range e.queue.List() {
		out[j.ID] = j.Position
	}
	return out
}

func (e *Engine) movedLocked(before map[string]int) []model.Job {
	var moved []model.Job
	for j := range e.queue.List() {
		if before[j.ID] != j.Position {
			moved = append(moved, j)
		}
	}
	return moved
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// emit hands evt to the dispatcher. Progress and queued events are dropped
// when the buffer is full; terminal and removed events wait for room while
// the dispatcher runs.
func (e *Engine) emit(typ model.JobEventType, job model.Job) {
	if len(e.observers) == 0 {
		return
	}
	evt := model.JobEvent{Type: typ, Job: job, OccurredAt: e.now()}
	select {
	case e.events <- evt:
		return
	default:
	}

	if !mustDeliver(typ) || !e.dispatching.Load() {
		slog.Warn("event buffer full, dropping event", "job_id", job.ID, "type", typ)
		return
	}
	select {
	case e.events <- evt:
	case <-e.stopped:
		slog.Warn("dispatcher stopped, dropping event", "job_id", job.ID, "type", typ)
	}
}

func mustDeliver(typ model.JobEventType) bool {
	switch typ {
	case model.JobEventCompleted, model.JobEventFailed, model.JobEventCancelled, model.JobEventRemoved:
		return true
	}
	return false
}

// dispatch fans events out to the observers until stop is closed, then
// delivers whatever is still buffered.
func (e *Engine) dispatch(stop <-chan struct{}) {
	defer close(e.stopped)
	for {
		select {
		case evt := <-e.events:
			e.publish(evt)
		case <-stop:
			for {
				select {
				case evt := <-e.events:
					e.publish(evt)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) publish(evt model.JobEvent) {
	for _, o := range e.observers {
		o.Publish(evt)
	}
}
