package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
)

type fakeRun struct {
	prompt   string
	provider string
	upd      model.GenerationUpdate
}

// fakeClient keeps every generation running until the test sets an outcome.
type fakeClient struct {
	mu         sync.Mutex
	seq        int
	runs       map[string]*fakeRun
	byPrompt   map[string]string
	submitted  []string
	cancelled  []string
	submitErr  map[string]error
	pollErr    map[string]error
	cancelGate chan struct{}
	started    chan string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		runs:      map[string]*fakeRun{},
		byPrompt:  map[string]string{},
		submitErr: map[string]error{},
		pollErr:   map[string]error{},
		started:   make(chan string, 64),
	}
}

func (f *fakeClient) Submit(_ context.Context, h *provider.Handle, req model.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req.Prompt)
	if err := f.submitErr[req.Prompt]; err != nil {
		return "", err
	}
	f.seq++
	handle := fmt.Sprintf("h-%d", f.seq)
	f.runs[handle] = &fakeRun{
		prompt:   req.Prompt,
		provider: h.Name,
		upd:      model.GenerationUpdate{State: model.GenerationStateRunning},
	}
	f.byPrompt[req.Prompt] = handle
	f.started <- req.Prompt
	return handle, nil
}

func (f *fakeClient) Poll(_ context.Context, handle string) (*model.GenerationUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[handle]
	if !ok {
		return nil, errors.New("unknown handle")
	}
	if err := f.pollErr[run.prompt]; err != nil {
		return nil, err
	}
	upd := run.upd
	return &upd, nil
}

func (f *fakeClient) Cancel(ctx context.Context, handle string) error {
	f.mu.Lock()
	gate := f.cancelGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[handle]
	if !ok {
		return errors.New("unknown handle")
	}
	f.cancelled = append(f.cancelled, run.prompt)
	run.upd.State = model.GenerationStateCancelled
	return nil
}

func (f *fakeClient) set(t *testing.T, prompt string, upd model.GenerationUpdate) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	handle, ok := f.byPrompt[prompt]
	if !ok {
		t.Fatalf("no generation submitted for %q", prompt)
	}
	f.runs[handle].upd = upd
}

func (f *fakeClient) complete(t *testing.T, prompt string) {
	t.Helper()
	f.set(t, prompt, model.GenerationUpdate{
		State:    model.GenerationStateCompleted,
		Progress: 100,
		Versions: []model.Version{{ID: "v-" + prompt, AudioRef: "mem://" + prompt, Seed: 1}},
	})
}

func (f *fakeClient) providerOf(prompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.byPrompt[prompt]; ok {
		return f.runs[h].provider
	}
	return ""
}

func (f *fakeClient) cancelledPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// waitStarted blocks until the backend receives prompt.
func (f *fakeClient) waitStarted(t *testing.T, prompt string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != prompt {
			t.Fatalf("started %q, want %q", got, prompt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q to start", prompt)
	}
}

type fakeLoader struct {
	mu     sync.Mutex
	loads  []string
	failOn map[string]error
	gates  map[string]chan struct{}
	// loading receives each provider name as its load begins
	loading chan string
}

func (l *fakeLoader) Load(_ context.Context, name string) (*provider.Handle, error) {
	l.mu.Lock()
	gate := l.gates[name]
	l.mu.Unlock()
	select {
	case l.loading <- name:
	default:
	}
	if gate != nil {
		<-gate
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, name)
	if err := l.failOn[name]; err != nil {
		return nil, err
	}
	return &provider.Handle{Name: name}, nil
}

func (l *fakeLoader) Unload(context.Context, *provider.Handle) error { return nil }

func (l *fakeLoader) gate(name string) chan struct{} {
	g := make(chan struct{})
	l.mu.Lock()
	l.gates[name] = g
	l.mu.Unlock()
	return g
}

func (l *fakeLoader) loadOrder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprint(l.loads)
}

type recorder struct {
	mu     sync.Mutex
	events []model.JobEvent
}

func (r *recorder) Publish(evt model.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types(jobID string) []model.JobEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.JobEventType
	for _, e := range r.events {
		if e.Job.ID == jobID {
			out = append(out, e.Type)
		}
	}
	return out
}

type harness struct {
	engine *Engine
	client *fakeClient
	loader *fakeLoader
	ids    map[string]string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	loader := &fakeLoader{
		failOn:  map[string]error{},
		gates:   map[string]chan struct{}{},
		loading: make(chan string, 16),
	}
	reg, err := provider.NewRegistry(loader, []string{"ace_step", "song_generation"}, "ace_step")
	if err != nil {
		t.Fatal(err)
	}
	client := newFakeClient()
	n := 0
	base := []Option{
		WithPollInterval(2 * time.Millisecond),
		WithCancelTimeout(2 * time.Second),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("job-%d", n) }),
	}
	e := New(reg, client, append(base, opts...)...)
	return &harness{engine: e, client: client, loader: loader, ids: map[string]string{}}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("engine did not stop")
		}
	})
}

// submit queues a request whose prompt doubles as the test's job name.
func (h *harness) submit(t *testing.T, name string, mutate ...func(*model.GenerationRequest)) string {
	t.Helper()
	req := model.GenerationRequest{Prompt: name, Duration: 30}
	for _, m := range mutate {
		m(&req)
	}
	job, err := h.engine.Submit(req)
	if err != nil {
		t.Fatalf("Submit(%s): %v", name, err)
	}
	h.ids[name] = job.ID
	return job.ID
}

func (h *harness) status(t *testing.T, name string) model.Job {
	t.Helper()
	job, err := h.engine.GetStatus(h.ids[name])
	if err != nil {
		t.Fatalf("GetStatus(%s): %v", name, err)
	}
	return job
}

func (h *harness) waitStatus(t *testing.T, name string, want model.JobStatus) model.Job {
	t.Helper()
	var job model.Job
	waitFor(t, fmt.Sprintf("%s to be %s", name, want), func() bool {
		job = h.status(t, name)
		return job.Status == want
	})
	return job
}

func (h *harness) queueOrder() []string {
	var names []string
	for _, j := range h.engine.ListQueue() {
		names = append(names, j.Request.Prompt)
	}
	return names
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func strPtr(s string) *string { return &s }
