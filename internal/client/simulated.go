package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
)

// maxSimulatedAudio caps the length of the silent audio written per version.
const maxSimulatedAudio = 5.0

type simStep struct {
	progress float64
	step     string
	weight   int
}

var simulatedSteps = []simStep{
	{5, "Loading model weights...", 1},
	{15, "Encoding prompt...", 1},
	{35, "Generating structure...", 2},
	{60, "Generating audio...", 3},
	{80, "Refining audio...", 2},
	{95, "Decoding versions...", 1},
}

// SimulatedBackend stands in for the model service. It walks through a
// fixed list of steps, stops between steps when cancelled, and writes a
// silent WAV per version.
type SimulatedBackend struct {
	stepDelay time.Duration
	store     AudioStore

	mu   sync.Mutex
	runs map[string]*simRun
}

type simRun struct {
	upd    model.GenerationUpdate
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulatedBackend creates a backend whose unit step takes stepDelay.
// store may be nil, in which case versions get sim:// references.
func NewSimulatedBackend(stepDelay time.Duration, store AudioStore) *SimulatedBackend {
	return &SimulatedBackend{
		stepDelay: stepDelay,
		store:     store,
		runs:      make(map[string]*simRun),
	}
}

// Load pretends to load a provider
func (b *SimulatedBackend) Load(ctx context.Context, name string) (*provider.Handle, error) {
	if err := sleepCtx(ctx, b.stepDelay); err != nil {
		return nil, err
	}
	return &provider.Handle{
		Name:     name,
		LoadedAt: time.Now(),
		Info:     map[string]interface{}{"backend": "simulated"},
	}, nil
}

func (b *SimulatedBackend) Unload(context.Context, *provider.Handle) error {
	return nil
}

// Submit starts a simulated generation in the background
func (b *SimulatedBackend) Submit(_ context.Context, h *provider.Handle, req model.GenerationRequest) (string, error) {
	id := ulid.Make().String()
	ctx, cancel := context.WithCancel(context.Background())
	run := &simRun{
		upd:    model.GenerationUpdate{State: model.GenerationStateRunning, CurrentStep: "Queued on " + h.Name},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.runs[id] = run
	b.mu.Unlock()

	go b.generate(ctx, id, run, req)
	return id, nil
}

// Poll returns the current state of a generation. Finished runs are
// forgotten after they have been reported once.
func (b *SimulatedBackend) Poll(_ context.Context, handle string) (*model.GenerationUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	run, ok := b.runs[handle]
	if !ok {
		return nil, fmt.Errorf("unknown generation %s", handle)
	}
	upd := run.upd
	upd.Versions = append([]model.Version(nil), run.upd.Versions...)
	if upd.State.IsTerminal() {
		delete(b.runs, handle)
	}
	return &upd, nil
}

// Cancel stops a generation and waits until it has wound down
func (b *SimulatedBackend) Cancel(ctx context.Context, handle string) error {
	b.mu.Lock()
	run, ok := b.runs[handle]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	run.cancel()
	select {
	case <-run.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	delete(b.runs, handle)
	b.mu.Unlock()
	return nil
}

func (b *SimulatedBackend) generate(ctx context.Context, id string, run *simRun, req model.GenerationRequest) {
	defer close(run.done)
	defer run.cancel()

	for _, s := range simulatedSteps {
		if err := sleepCtx(ctx, b.stepDelay*time.Duration(s.weight)); err != nil {
			b.update(run, func(u *model.GenerationUpdate) { u.State = model.GenerationStateCancelled })
			slog.Info("simulated generation cancelled", "generation_id", id, "at", s.step)
			return
		}
		b.update(run, func(u *model.GenerationUpdate) {
			u.Progress = s.progress
			u.CurrentStep = s.step
		})
	}

	versions, err := b.render(ctx, id, req)
	if err != nil {
		b.update(run, func(u *model.GenerationUpdate) {
			u.State = model.GenerationStateFailed
			u.Error = err.Error()
		})
		return
	}

	b.update(run, func(u *model.GenerationUpdate) {
		u.State = model.GenerationStateCompleted
		u.Progress = 100
		u.CurrentStep = "Done"
		u.Versions = versions
	})
}

func (b *SimulatedBackend) render(ctx context.Context, id string, req model.GenerationRequest) ([]model.Version, error) {
	n := req.NumVersions
	if n < 1 {
		n = model.DefaultVersions
	}
	seconds := req.Duration
	if seconds > maxSimulatedAudio {
		seconds = maxSimulatedAudio
	}

	versions := make([]model.Version, 0, n)
	for i := 0; i < n; i++ {
		seed := rand.Int64N(1 << 31)
		if req.Seed != nil {
			seed = *req.Seed + int64(i)
		}
		v := model.Version{ID: ulid.Make().String(), Seed: seed, Duration: req.Duration}

		if b.store == nil {
			v.AudioRef = "sim://" + v.ID
		} else {
			key := fmt.Sprintf("versions/%s/%s.wav", id, v.ID)
			ref, err := b.store.Put(ctx, key, bytes.NewReader(silentWAV(seconds)), "audio/wav")
			if err != nil {
				return nil, fmt.Errorf("store version audio: %w", err)
			}
			v.AudioRef = ref
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (b *SimulatedBackend) update(run *simRun, fn func(*model.GenerationUpdate)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&run.upd)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
