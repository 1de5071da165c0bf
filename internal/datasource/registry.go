package datasource

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the fetch state of one source.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
)

// State is a snapshot of one source's fetch state.
type State struct {
	Status    Status
	Err       error
	FetchedAt time.Time
}

// Listener is called after a source's state changes.
type Listener func(name string, st State)

// Registry holds source definitions and their latest payloads.
// It satisfies binding.Source.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	defs      map[string]Definition
	values    map[string]any
	states    map[string]State
	fetcher   Fetcher
	limit     int
	listeners []Listener
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConcurrency caps the number of simultaneous fetches in RunAll.
// Zero or negative means unlimited.
func WithConcurrency(n int) RegistryOption {
	return func(r *Registry) { r.limit = n }
}

// NewRegistry returns an empty registry that fetches through f.
func NewRegistry(f Fetcher, opts ...RegistryOption) *Registry {
	r := &Registry{
		defs:    make(map[string]Definition),
		values:  make(map[string]any),
		states:  make(map[string]State),
		fetcher: f,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds or replaces a source definition. Replacing a definition
// drops its cached value.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("data source has no name")
	}
	if def.URL == "" {
		return fmt.Errorf("data source %s has no url", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
	delete(r.values, def.Name)
	r.states[def.Name] = State{Status: StatusIdle}
	return nil
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Value returns the cached payload of a source. A source that has not
// been fetched, or whose last fetch failed, is absent.
func (r *Registry) Value(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// State returns the fetch state of a source.
func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[name]
	return st, ok
}

// Set stores a payload directly, as if it had been fetched.
func (r *Registry) Set(name string, v any) {
	st := State{Status: StatusOK, FetchedAt: time.Now()}
	r.mu.Lock()
	if _, ok := r.defs[name]; !ok && !slices.Contains(r.order, name) {
		r.order = append(r.order, name)
	}
	r.values[name] = v
	r.states[name] = st
	r.mu.Unlock()
	r.notify(name, st)
}

// Subscribe registers fn for state changes.
func (r *Registry) Subscribe(fn Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) notify(name string, st State) {
	r.mu.RLock()
	ls := slices.Clone(r.listeners)
	r.mu.RUnlock()
	for _, fn := range ls {
		fn(name, st)
	}
}

func (r *Registry) setState(name string, st State, value any, keep bool) {
	r.mu.Lock()
	r.states[name] = st
	switch {
	case keep:
		r.values[name] = value
	case st.Status == StatusError:
		delete(r.values, name)
	}
	r.mu.Unlock()
	r.notify(name, st)
}

// Run fetches a single source. A failure is recorded against the source
// and its cached value is dropped, so bindings see it as absent.
func (r *Registry) Run(ctx context.Context, name string) error {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	r.setState(name, State{Status: StatusLoading}, nil, false)
	v, err := r.fetcher.Fetch(ctx, def)
	if err != nil {
		log.Printf("datasource: %s failed: %v", name, err)
		r.setState(name, State{Status: StatusError, Err: err, FetchedAt: time.Now()}, nil, false)
		return err
	}
	r.setState(name, State{Status: StatusOK, FetchedAt: time.Now()}, v, true)
	return nil
}

// RunAll fetches every active source concurrently. One failure neither
// cancels nor invalidates the others; the returned error joins every
// individual failure in registration order.
func (r *Registry) RunAll(ctx context.Context) error {
	var names []string
	for _, def := range r.Definitions() {
		if def.IsActive() {
			names = append(names, def.Name)
		}
	}

	errs := make([]error, len(names))
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, name := range names {
		g.Go(func() error {
			errs[i] = r.Run(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
