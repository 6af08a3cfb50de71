// Package storage provides the small key-value store that stands in for the
// browser's local storage: settings, theme, the persisted auth session and the
// week planner all live here under fixed keys.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Keys used by the dashboard.
const (
	KeySettings    = "fitness-settings"
	KeyTheme       = "fitness-theme"
	KeyAuthSession = "fitness-auth-session"
	KeyWeekPlan    = "fitness-week"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage: store is closed")

// Store is a synchronous string key-value store. Writes are last-writer-wins.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value for key in a single write.
	Set(ctx context.Context, key, value string) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Subscribe registers fn for changes to key made through this store.
	// fn receives the new value and whether the key still exists.
	Subscribe(key string, fn func(value string, ok bool)) (unsubscribe func())
	Close() error
}

// watchers is the subscription registry shared by every backend.
type watchers struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(string, bool)
}

func (w *watchers) subscribe(key string, fn func(string, bool)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.subs == nil {
		w.subs = make(map[string]map[int]func(string, bool))
	}
	if w.subs[key] == nil {
		w.subs[key] = make(map[int]func(string, bool))
	}
	id := w.nextID
	w.nextID++
	w.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs[key], id)
		})
	}
}

func (w *watchers) notify(key, value string, ok bool) {
	w.mu.Lock()
	fns := make([]func(string, bool), 0, len(w.subs[key]))
	for _, fn := range w.subs[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(value, ok)
	}
}
