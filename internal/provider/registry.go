// Package provider tracks which generation provider owns the single
// loadable model resource.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/makeasinger/genqueue/internal/apperr"
)

// Handle is a loaded provider resource
type Handle struct {
	Name     string
	LoadedAt time.Time
	Info     map[string]interface{}
}

// Loader loads and releases provider resources
type Loader interface {
	Load(ctx context.Context, name string) (*Handle, error)
	Unload(ctx context.Context, h *Handle) error
}

// Status is a point-in-time view of one provider
type Status struct {
	Name     string
	Loaded   bool
	InUse    int
	Default  bool
	LoadedAt *time.Time
}

// Registry enforces that at most one provider is loaded at a time.
//
// opMu serializes load/unload I/O; mu guards the fields and is never held
// across I/O.
type Registry struct {
	loader      Loader
	names       []string
	defaultName string

	opMu sync.Mutex

	mu      sync.Mutex
	current *Handle
	inUse   int
}

// NewRegistry creates a registry for the given provider names. The first
// name is the default when defaultName is empty.
func NewRegistry(loader Loader, names []string, defaultName string) (*Registry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if defaultName == "" {
		defaultName = names[0]
	}
	r := &Registry{
		loader:      loader,
		names:       append([]string(nil), names...),
		defaultName: defaultName,
	}
	if !r.Known(defaultName) {
		return nil, fmt.Errorf("%w: default %q", apperr.ErrUnknownProvider, defaultName)
	}
	return r, nil
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Default returns the provider used when nothing is loaded and a request
// does not name one.
func (r *Registry) Default() string {
	return r.defaultName
}

// CurrentProvider returns the loaded provider, if any.
func (r *Registry) CurrentProvider() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return "", false
	}
	return r.current.Name, true
}

// Resolve picks the provider for a request: the requested one, else the
// loaded one, else the default.
func (r *Registry) Resolve(requested string) string {
	if requested != "" {
		return requested
	}
	if cur, ok := r.CurrentProvider(); ok {
		return cur
	}
	return r.defaultName
}

// Providers returns the status of every registered provider.
func (r *Registry) Providers() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.names))
	for _, n := range r.names {
		st := Status{Name: n, Default: n == r.defaultName}
		if r.current != nil && r.current.Name == n {
			st.Loaded = true
			st.InUse = r.inUse
			t := r.current.LoadedAt
			st.LoadedAt = &t
		}
		out = append(out, st)
	}
	return out
}

// Switch loads name in place of the current provider. It is rejected with
// ErrResourceBusy while a job holds the resource, and holds the reservation
// itself until the load finishes so no job can start mid-switch. A failed
// load leaves no provider loaded.
func (r *Registry) Switch(ctx context.Context, name string) error {
	if !r.Known(name) {
		return fmt.Errorf("%w: %s", apperr.ErrUnknownProvider, name)
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if r.current != nil && r.current.Name == name {
		r.mu.Unlock()
		return nil
	}
	if r.inUse > 0 {
		r.mu.Unlock()
		return apperr.Busy("cannot switch provider while a job is processing", apperr.ErrResourceBusy)
	}
	r.inUse = 1
	r.mu.Unlock()
	defer r.Release()

	_, err := r.swap(ctx, name)
	return err
}

// Acquire reserves the resource for the job about to start. It never
// blocks on I/O and fails with ErrResourceBusy if a job or a switch
// already holds it.
func (r *Registry) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse > 0 {
		return apperr.Busy("provider already in use", apperr.ErrResourceBusy)
	}
	r.inUse = 1
	return nil
}

// Ensure makes name the loaded provider for the holder of the reservation,
// switching implicitly when another provider is loaded.
func (r *Registry) Ensure(ctx context.Context, name string) (*Handle, error) {
	if !r.Known(name) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnknownProvider, name)
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if r.inUse == 0 {
		r.mu.Unlock()
		return nil, fmt.Errorf("ensure %s: resource not acquired", name)
	}
	if r.current != nil && r.current.Name == name {
		h := r.current
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()

	return r.swap(ctx, name)
}

// Release drops the reservation. The provider stays loaded for reuse.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse > 0 {
		r.inUse--
	}
}

// swap unloads the current provider and loads name. Callers hold opMu.
func (r *Registry) swap(ctx context.Context, name string) (*Handle, error) {
	r.mu.Lock()
	prev := r.current
	r.mu.Unlock()

	if prev != nil {
		slog.Info("unloading provider", "provider", prev.Name)
		if err := r.loader.Unload(ctx, prev); err != nil {
			return nil, fmt.Errorf("unload provider %s: %w", prev.Name, err)
		}
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}

	slog.Info("loading provider", "provider", name)
	h, err := r.loader.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load provider %s: %w", name, err)
	}
	if h.LoadedAt.IsZero() {
		h.LoadedAt = time.Now()
	}
	if h.Name == "" {
		h.Name = name
	}

	r.mu.Lock()
	r.current = h
	r.mu.Unlock()
	slog.Info("provider loaded", "provider", name)
	return h, nil
}
