// Package loader fetches whole tables from the gateway and keeps the latest
// result, discarding completions that were overtaken by newer fetches.
package loader

import (
	"alcyxob/fitness-dashboard/internal/gateway"
	"context"
	"sync"
)

// State is what a page renders for one table.
type State[T any] struct {
	Data    []T    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Loader keeps the State of one table.
type Loader[T any] struct {
	gw    gateway.Gateway
	table string
	base  context.Context

	mu         sync.Mutex
	state      State[T]
	generation uint64
	cancel     context.CancelFunc
	inflight   bool
	idle       chan struct{}
	hasDeps    bool
	enabled    bool
	refresh    int
	closed     bool
}

// New creates a loader for table. gw may be nil, in which case the loader
// never fetches.
func New[T any](gw gateway.Gateway, table string) *Loader[T] {
	return &Loader[T]{
		gw:    gw,
		table: table,
		base:  context.Background(),
		state: State[T]{Data: []T{}, Loading: true},
	}
}

// Table returns the table name.
func (l *Loader[T]) Table() string { return l.table }

// State returns a copy of the current state.
func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Data = append([]T(nil), l.state.Data...)
	if s.Data == nil {
		s.Data = []T{}
	}
	return s
}

// Sync re-evaluates the loader's inputs. A change of enabled or refresh
// invalidates any fetch in flight; a new fetch starts only when the gateway
// is present and enabled is true.
func (l *Loader[T]) Sync(enabled bool, refresh int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.hasDeps && l.enabled == enabled && l.refresh == refresh {
		return
	}
	l.hasDeps, l.enabled, l.refresh = true, enabled, refresh

	l.invalidateLocked()
	if l.gw == nil || !enabled {
		return
	}
	l.fetchLocked()
}

// Reload forces a new fetch with the current inputs.
func (l *Loader[T]) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.gw == nil || !l.enabled {
		return
	}
	l.invalidateLocked()
	l.fetchLocked()
}

func (l *Loader[T]) invalidateLocked() {
	l.generation++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.inflight {
		l.inflight = false
		close(l.idle)
	}
}

func (l *Loader[T]) fetchLocked() {
	gen := l.generation
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.inflight = true
	l.idle = make(chan struct{})
	l.state.Loading = true
	l.state.Error = ""

	go l.run(ctx, gen)
}

func (l *Loader[T]) run(ctx context.Context, gen uint64) {
	var rows []T
	err := l.gw.Table(l.table).SelectAll(ctx, &rows)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return
	}
	if err != nil {
		l.state = State[T]{Data: []T{}, Loading: false, Error: err.Error()}
	} else {
		if rows == nil {
			rows = []T{}
		}
		l.state = State[T]{Data: rows, Loading: false}
	}
	l.inflight = false
	l.cancel = nil
	close(l.idle)
}

// Wait blocks until no fetch is in flight or ctx ends.
func (l *Loader[T]) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		if !l.inflight {
			l.mu.Unlock()
			return nil
		}
		idle := l.idle
		l.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drops any fetch in flight. The loader is inert afterwards.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.invalidateLocked()
}
