// Package session mirrors the gateway's auth state for the rest of the
// dashboard and sends signed-out users to the login page.
package session

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"context"
	"log/slog"
	"sync"
)

// DefaultRedirect is where signed-out users are sent.
const DefaultRedirect = "/login"

// State is a snapshot of the guard.
type State struct {
	HasConfig bool
	Loading   bool
	Session   *domain.Session
}

// SignedIn reports whether a session is present.
func (s State) SignedIn() bool { return s.Session != nil }

// Navigator performs a redirect. It must not block.
type Navigator func(target string)

type Option func(*Guard)

// WithRedirect overrides the redirect target.
func WithRedirect(target string) Option {
	return func(g *Guard) { g.redirect = target }
}

// WithNavigator sets the function called when no session is present.
func WithNavigator(nav Navigator) Option {
	return func(g *Guard) { g.navigate = nav }
}

// Guard tracks the current session of one gateway handle.
type Guard struct {
	gw       gateway.Gateway
	redirect string
	navigate Navigator

	mu          sync.Mutex
	state       State
	generation  uint64
	started     bool
	settled     bool
	closed      bool
	unsubscribe func()
	cancel      context.CancelFunc
	resolved    chan struct{}
	closedCh    chan struct{}
	nextID      int
	watchers    map[int]func(State)
}

// NewGuard creates a guard for gw. A nil gw means the gateway is not
// configured: the guard reports HasConfig=false and never touches the network.
func NewGuard(gw gateway.Gateway, opts ...Option) *Guard {
	g := &Guard{
		gw:       gw,
		redirect: DefaultRedirect,
		navigate: func(string) {},
		resolved: make(chan struct{}),
		closedCh: make(chan struct{}),
		watchers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if gw == nil {
		close(g.resolved)
		return g
	}
	g.state = State{HasConfig: true, Loading: true}
	return g
}

// Start subscribes to auth changes and resolves the current session in the
// background. Only the first call has any effect.
func (g *Guard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.gw == nil || g.started || g.closed {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.generation++
	gen := g.generation
	ctx, g.cancel = context.WithCancel(ctx)
	g.unsubscribe = g.gw.Auth().OnSessionChange(g.onChange)
	g.mu.Unlock()

	go g.resolve(ctx, gen)
}

func (g *Guard) resolve(ctx context.Context, gen uint64) {
	sess, err := g.gw.Auth().GetCurrentSession(ctx)

	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		return
	}
	if err != nil {
		slog.Warn("Could not resolve current session", "error", err)
		sess = nil
	}
	g.state.Session = sess
	g.state.Loading = false
	g.settled = true
	snapshot, watchers := g.snapshotLocked()
	g.mu.Unlock()

	g.publish(snapshot, watchers)
	close(g.resolved)
}

func (g *Guard) onChange(event gateway.Event, sess *domain.Session) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	// An event is newer than any resolution still in flight.
	g.generation++
	settle := !g.settled
	g.settled = true
	g.state.Session = sess
	g.state.Loading = false
	snapshot, watchers := g.snapshotLocked()
	g.mu.Unlock()

	slog.Debug("Auth state changed", "event", event, "signedIn", sess != nil)
	g.publish(snapshot, watchers)
	if settle {
		close(g.resolved)
	}
}

func (g *Guard) snapshotLocked() (State, []func(State)) {
	fns := make([]func(State), 0, len(g.watchers))
	for _, fn := range g.watchers {
		fns = append(fns, fn)
	}
	return g.state, fns
}

func (g *Guard) publish(s State, watchers []func(State)) {
	for _, fn := range watchers {
		fn(s)
	}
	if s.Session == nil {
		g.navigate(g.redirect)
	}
}

// State returns the current snapshot.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// RedirectTarget is where signed-out users are sent.
func (g *Guard) RedirectTarget() string { return g.redirect }

// Subscribe calls fn with every new state.
func (g *Guard) Subscribe(fn func(State)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.watchers[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.watchers, id)
			g.mu.Unlock()
		})
	}
}

// Wait blocks until the initial resolution finished, the guard is closed, or
// ctx ends.
func (g *Guard) Wait(ctx context.Context) error {
	select {
	case <-g.resolved:
		return nil
	case <-g.closedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes from the gateway and drops any pending resolution.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.generation++
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	if g.cancel != nil {
		g.cancel()
	}
	close(g.closedCh)
}
