// Package gatewaytest provides an in-memory gateway with controllable auth
// and per-table failure/blocking hooks for tests. Its tables are not scoped
// to the session, so tests can seed and read rows without signing in.
package gatewaytest

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/repository/memory"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Gateway is a gateway.Gateway over a memory store.
type Gateway struct {
	Store    *memory.Store
	FakeAuth *Auth

	mu    sync.Mutex
	hooks map[string]*Hooks
}

// Hooks alter the behaviour of one table.
type Hooks struct {
	mu        sync.Mutex
	selectErr error
	insertErr error
	block     chan struct{}
	selects   int
	inserts   int
}

// New creates a fake gateway with the dashboard tables and a signed-out auth.
func New() *Gateway {
	store := memory.New()
	auth := &Auth{users: map[string]string{}}
	return &Gateway{
		Store:    store,
		FakeAuth: auth,
		hooks:    map[string]*Hooks{},
	}
}

func (g *Gateway) Auth() gateway.Auth { return g.FakeAuth }

func (g *Gateway) Table(name string) gateway.Table {
	return &table{inner: &storeTable{name: name, store: g.Store}, hooks: g.Hooks(name)}
}

func (g *Gateway) Close(ctx context.Context) error { return nil }

// Hooks returns the hooks for table, creating them on first use.
func (g *Gateway) Hooks(table string) *Hooks {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.hooks[table]
	if !ok {
		h = &Hooks{}
		g.hooks[table] = h
	}
	return h
}

// FailSelect makes every subsequent SelectAll fail with err (nil clears it).
func (h *Hooks) FailSelect(err error) {
	h.mu.Lock()
	h.selectErr = err
	h.mu.Unlock()
}

// FailInsert makes every subsequent insert fail with err (nil clears it).
func (h *Hooks) FailInsert(err error) {
	h.mu.Lock()
	h.insertErr = err
	h.mu.Unlock()
}

// Block makes SelectAll wait until the returned release func is called or
// the call's context ends.
func (h *Hooks) Block() (release func()) {
	ch := make(chan struct{})
	h.mu.Lock()
	h.block = ch
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if h.block == ch {
				h.block = nil
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Selects reports how many SelectAll calls reached the table.
func (h *Hooks) Selects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selects
}

// Inserts reports how many insert calls reached the table.
func (h *Hooks) Inserts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inserts
}

type table struct {
	inner gateway.Table
	hooks *Hooks
}

func (t *table) SelectAll(ctx context.Context, dest any) error {
	t.hooks.mu.Lock()
	t.hooks.selects++
	block, err := t.hooks.block, t.hooks.selectErr
	t.hooks.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return t.inner.SelectAll(ctx, dest)
}

func (t *table) insertErr() error {
	t.hooks.mu.Lock()
	defer t.hooks.mu.Unlock()
	t.hooks.inserts++
	return t.hooks.insertErr
}

func (t *table) Insert(ctx context.Context, records any) error {
	if err := t.insertErr(); err != nil {
		return err
	}
	return t.inner.Insert(ctx, records)
}

func (t *table) InsertReturning(ctx context.Context, record any, columns string, dest any) error {
	if err := t.insertErr(); err != nil {
		return err
	}
	return t.inner.InsertReturning(ctx, record, columns, dest)
}

// storeTable reads and writes the memory store directly.
type storeTable struct {
	name  string
	store *memory.Store
}

func (t *storeTable) SelectAll(ctx context.Context, dest any) error {
	rows, err := t.store.SelectAll(ctx, t.name)
	if err != nil {
		return fmt.Errorf("select %s: %w", t.name, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return remarshal(rows, dest)
}

func (t *storeTable) Insert(ctx context.Context, records any) error {
	rows, err := gateway.ToRows(records)
	if err != nil {
		return err
	}
	if _, err := t.store.Insert(ctx, t.name, rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *storeTable) InsertReturning(ctx context.Context, record any, columns string, dest any) error {
	rows, err := gateway.ToRows(record)
	if err != nil {
		return err
	}
	stored, err := t.store.Insert(ctx, t.name, rows)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	if len(stored) == 0 {
		return gateway.ErrEmptyResult
	}
	return remarshal(gateway.ProjectColumns(stored[0], columns), dest)
}

func remarshal(v, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Auth is a scriptable gateway.Auth.
type Auth struct {
	notifier gateway.Notifier

	mu         sync.Mutex
	session    *domain.Session
	resolveErr error
	block      chan struct{}
	users      map[string]string
	resolves   int
}

// SetSession sets the stored session without notifying listeners.
func (a *Auth) SetSession(s *domain.Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
}

// FailResolve makes GetCurrentSession return err.
func (a *Auth) FailResolve(err error) {
	a.mu.Lock()
	a.resolveErr = err
	a.mu.Unlock()
}

// BlockResolve makes GetCurrentSession wait for release or its context.
func (a *Auth) BlockResolve() (release func()) {
	ch := make(chan struct{})
	a.mu.Lock()
	a.block = ch
	a.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Emit stores s and notifies listeners, as the auth subsystem does on a
// state change.
func (a *Auth) Emit(event gateway.Event, s *domain.Session) {
	a.SetSession(s)
	a.notifier.Emit(event, s)
}

// Listeners reports the number of active session listeners.
func (a *Auth) Listeners() int { return a.notifier.Len() }

// Resolves reports how many times GetCurrentSession was called.
func (a *Auth) Resolves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolves
}

// AddUser registers credentials accepted by SignInWithPassword.
func (a *Auth) AddUser(email, password string) {
	a.mu.Lock()
	a.users[strings.ToLower(email)] = password
	a.mu.Unlock()
}

func (a *Auth) GetCurrentSession(ctx context.Context) (*domain.Session, error) {
	a.mu.Lock()
	a.resolves++
	block := a.block
	a.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolveErr != nil {
		return nil, a.resolveErr
	}
	return a.session, nil
}

func (a *Auth) OnSessionChange(fn gateway.Listener) func() {
	return a.notifier.Subscribe(fn)
}

func (a *Auth) SignInWithPassword(ctx context.Context, creds gateway.Credentials) error {
	a.mu.Lock()
	pw, ok := a.users[strings.ToLower(creds.Email)]
	a.mu.Unlock()
	if !ok || pw != creds.Password {
		return gateway.ErrInvalidCredentials
	}
	a.Emit(gateway.EventSignedIn, NewSession("user-"+strings.ToLower(creds.Email), creds.Email))
	return nil
}

func (a *Auth) SignUp(ctx context.Context, creds gateway.Credentials) error {
	a.AddUser(creds.Email, creds.Password)
	return nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.Emit(gateway.EventSignedOut, nil)
	return nil
}

// NewSession builds a non-expiring session for id.
func NewSession(id, email string) *domain.Session {
	return &domain.Session{
		AccessToken: "token-" + id,
		User:        domain.SessionUser{ID: id, Email: email},
	}
}
