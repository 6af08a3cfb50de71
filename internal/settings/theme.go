package settings

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"sync"
)

// ThemeStore persists the light/dark preference.
type ThemeStore struct {
	kv storage.Store

	mu    sync.RWMutex
	theme domain.Theme
}

func NewThemeStore(kv storage.Store) *ThemeStore {
	return &ThemeStore{kv: kv, theme: domain.ThemeLight}
}

// Load reads the stored theme. Anything other than "dark" is light.
func (t *ThemeStore) Load(ctx context.Context) error {
	if t.kv == nil {
		return nil
	}
	raw, _, err := t.kv.Get(ctx, storage.KeyTheme)
	t.mu.Lock()
	t.theme = domain.ParseTheme(raw)
	t.mu.Unlock()
	return err
}

func (t *ThemeStore) Theme() domain.Theme {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.theme
}

// Set stores next, normalized to light or dark.
func (t *ThemeStore) Set(ctx context.Context, next domain.Theme) error {
	next = domain.ParseTheme(string(next))
	t.mu.Lock()
	t.theme = next
	t.mu.Unlock()
	if t.kv == nil {
		return nil
	}
	return t.kv.Set(ctx, storage.KeyTheme, string(next))
}
