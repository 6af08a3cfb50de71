// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" gateway driver and the package tests.
package memory

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/repository"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps tables and users in memory.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]repository.Row
	users  map[string]domain.User
	now    func() time.Time
}

// New creates a Store that accepts the given tables. With no arguments the
// dashboard tables are registered.
func New(tables ...string) *Store {
	if len(tables) == 0 {
		tables = []string{domain.TableProfiles, domain.TableWorkouts, domain.TableWorkoutExercises}
	}
	s := &Store{
		tables: make(map[string][]repository.Row, len(tables)),
		users:  make(map[string]domain.User),
		now:    time.Now,
	}
	for _, t := range tables {
		s.tables[t] = nil
	}
	return s
}

// SelectAll returns copies of every row in table, in insertion order.
func (s *Store) SelectAll(ctx context.Context, table string) ([]repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, repository.ErrUnknownTable
	}
	out := make([]repository.Row, len(rows))
	for i, r := range rows {
		out[i] = repository.CloneRow(r)
	}
	return out, nil
}

// Insert appends rows to table, assigning ids and created_at where missing.
func (s *Store) Insert(ctx context.Context, table string, rows []repository.Row) ([]repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tables[table]
	if !ok {
		return nil, repository.ErrUnknownTable
	}
	now := s.now()
	stored := make([]repository.Row, 0, len(rows))
	for _, r := range rows {
		row := repository.CloneRow(r)
		repository.EnsureID(row)
		repository.EnsureCreatedAt(row, now)
		for k, v := range row {
			row[k] = repository.NormalizeValue(v)
		}
		stored = append(stored, row)
	}
	s.tables[table] = append(existing, stored...)

	out := make([]repository.Row, len(stored))
	for i, r := range stored {
		out[i] = repository.CloneRow(r)
	}
	return out, nil
}

// Create stores a new user; emails are unique case-insensitively.
func (s *Store) Create(ctx context.Context, user *domain.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return "", repository.ErrDuplicateUser
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = *user
	return user.ID, nil
}

// GetByEmail looks a user up by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetByID looks a user up by id.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
