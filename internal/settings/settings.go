// Package settings keeps the user's dashboard preferences and theme in the
// local key-value store.
package settings

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Store holds the in-memory copy of the settings record.
type Store struct {
	kv storage.Store

	mu       sync.RWMutex
	settings domain.UserSettings
	loaded   bool
}

// New creates a Store over kv. With a nil kv the store has nowhere to read
// from: Load does nothing and Update only changes memory.
func New(kv storage.Store) *Store {
	return &Store{kv: kv, settings: domain.DefaultSettings()}
}

// Load reads the stored record. Absent or unparseable data gives the
// defaults; a JSON object is merged over the defaults field by field.
// Loaded reports true afterwards even when reading failed.
func (s *Store) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	raw, ok, err := s.kv.Get(ctx, storage.KeySettings)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if err != nil {
		s.settings = domain.DefaultSettings()
		return fmt.Errorf("read settings: %w", err)
	}
	if !ok || raw == "" {
		s.settings = domain.DefaultSettings()
		return nil
	}
	s.settings = Decode(raw)
	return nil
}

// Decode parses a stored record. It never fails: anything unusable falls
// back to the default value for that field, or to the defaults wholesale
// when raw is not a JSON object.
func Decode(raw string) domain.UserSettings {
	out := domain.DefaultSettings()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		slog.Debug("Stored settings are not an object, using defaults", "error", err)
		return out
	}

	if v, ok := fields["displayName"]; ok {
		var name string
		if json.Unmarshal(v, &name) == nil {
			out.DisplayName = name
		}
	}
	if v, ok := fields["weeklyWorkoutGoal"]; ok {
		var goal *float64
		if json.Unmarshal(v, &goal) == nil {
			out.WeeklyWorkoutGoal = goal
		}
	}
	if v, ok := fields["preferredSplit"]; ok {
		var split string
		if json.Unmarshal(v, &split) == nil {
			out.PreferredSplit = split
		}
	}
	if v, ok := fields["unitSystem"]; ok {
		var unit domain.UnitSystem
		if json.Unmarshal(v, &unit) == nil && unit.Valid() {
			out.UnitSystem = unit
		}
	}
	return out
}

// Settings returns the current record.
func (s *Store) Settings() domain.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Loaded reports whether Load has run.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Update replaces the whole record in memory and in storage with one write.
// Callers that change a subset of fields merge first (see Patch).
func (s *Store) Update(ctx context.Context, next domain.UserSettings) error {
	if err := Validate(next); err != nil {
		return err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, storage.KeySettings, string(raw)); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate rejects records the settings form could not produce.
func Validate(v domain.UserSettings) error {
	if !v.UnitSystem.Valid() {
		return fmt.Errorf("%w: unit system must be metric or imperial", ErrInvalidSettings)
	}
	if v.WeeklyWorkoutGoal != nil && *v.WeeklyWorkoutGoal < 0 {
		return fmt.Errorf("%w: weekly workout goal cannot be negative", ErrInvalidSettings)
	}
	return nil
}

// Patch is a partial update. Nil fields are left as they are; ClearGoal
// removes the weekly goal.
type Patch struct {
	DisplayName       *string            `json:"displayName,omitempty"`
	WeeklyWorkoutGoal *float64           `json:"weeklyWorkoutGoal,omitempty"`
	ClearGoal         bool               `json:"clearWeeklyWorkoutGoal,omitempty"`
	PreferredSplit    *string            `json:"preferredSplit,omitempty"`
	UnitSystem        *domain.UnitSystem `json:"unitSystem,omitempty"`
}

// Apply merges p over base.
func (p Patch) Apply(base domain.UserSettings) domain.UserSettings {
	out := base
	if p.DisplayName != nil {
		out.DisplayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.ClearGoal {
		out.WeeklyWorkoutGoal = nil
	} else if p.WeeklyWorkoutGoal != nil {
		goal := *p.WeeklyWorkoutGoal
		out.WeeklyWorkoutGoal = &goal
	}
	if p.PreferredSplit != nil {
		out.PreferredSplit = strings.TrimSpace(*p.PreferredSplit)
	}
	if p.UnitSystem != nil {
		out.UnitSystem = *p.UnitSystem
	}
	return out
}

// ApplyPatch merges p over the current record and saves the result.
func (s *Store) ApplyPatch(ctx context.Context, p Patch) (domain.UserSettings, error) {
	next := p.Apply(s.Settings())
	if err := s.Update(ctx, next); err != nil {
		return s.Settings(), err
	}
	return next, nil
}
