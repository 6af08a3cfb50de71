package session

import (
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/gateway/gatewaytest"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type navRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (n *navRecorder) navigate(target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
}

func (n *navRecorder) get() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUnconfiguredGuard(t *testing.T) {
	nav := &navRecorder{}
	g := NewGuard(nil, WithNavigator(nav.navigate))
	g.Start(context.Background())

	s := g.State()
	assert.False(t, s.HasConfig)
	assert.False(t, s.Loading)
	assert.Nil(t, s.Session)
	require.NoError(t, g.Wait(waitCtx(t)))
	assert.Empty(t, nav.get())
}

func TestResolvesExistingSession(t *testing.T) {
	gw := gatewaytest.New()
	gw.FakeAuth.SetSession(gatewaytest.NewSession("u1", "a@example.com"))
	nav := &navRecorder{}

	g := NewGuard(gw, WithNavigator(nav.navigate))
	assert.True(t, g.State().Loading)
	assert.True(t, g.State().HasConfig)

	g.Start(context.Background())
	require.NoError(t, g.Wait(waitCtx(t)))

	s := g.State()
	assert.False(t, s.Loading)
	require.True(t, s.SignedIn())
	assert.Equal(t, "u1", s.Session.User.ID)
	assert.Empty(t, nav.get())
	g.Close()
}

func TestRedirectsWhenSignedOut(t *testing.T) {
	gw := gatewaytest.New()
	nav := &navRecorder{}

	g := NewGuard(gw, WithNavigator(nav.navigate), WithRedirect("/signin"))
	g.Start(context.Background())
	require.NoError(t, g.Wait(waitCtx(t)))

	assert.False(t, g.State().SignedIn())
	assert.Equal(t, []string{"/signin"}, nav.get())
	g.Close()
}

func TestResolveErrorCountsAsSignedOut(t *testing.T) {
	gw := gatewaytest.New()
	gw.FakeAuth.FailResolve(errors.New("network down"))
	nav := &navRecorder{}

	g := NewGuard(gw, WithNavigator(nav.navigate))
	g.Start(context.Background())
	require.NoError(t, g.Wait(waitCtx(t)))

	assert.False(t, g.State().Loading)
	assert.Nil(t, g.State().Session)
	assert.Equal(t, []string{DefaultRedirect}, nav.get())
	g.Close()
}

func TestNotificationsUpdateSession(t *testing.T) {
	gw := gatewaytest.New()
	gw.FakeAuth.SetSession(gatewaytest.NewSession("u1", "a@example.com"))
	nav := &navRecorder{}

	g := NewGuard(gw, WithNavigator(nav.navigate))
	var seen []bool
	g.Subscribe(func(s State) { seen = append(seen, s.SignedIn()) })
	g.Start(context.Background())
	require.NoError(t, g.Wait(waitCtx(t)))

	gw.FakeAuth.Emit(gateway.EventSignedOut, nil)
	assert.Nil(t, g.State().Session)
	assert.Equal(t, []string{DefaultRedirect}, nav.get())

	gw.FakeAuth.Emit(gateway.EventSignedIn, gatewaytest.NewSession("u2", "b@example.com"))
	assert.Equal(t, "u2", g.State().Session.User.ID)

	assert.Equal(t, []bool{true, false, true}, seen)
	g.Close()
}

func TestStartSubscribesOnce(t *testing.T) {
	gw := gatewaytest.New()
	g := NewGuard(gw)
	g.Start(context.Background())
	g.Start(context.Background())
	require.NoError(t, g.Wait(waitCtx(t)))

	assert.Equal(t, 1, gw.FakeAuth.Listeners())
	assert.Equal(t, 1, gw.FakeAuth.Resolves())

	g.Close()
	assert.Equal(t, 0, gw.FakeAuth.Listeners())
}

func TestCloseDropsPendingResolution(t *testing.T) {
	gw := gatewaytest.New()
	release := gw.FakeAuth.BlockResolve()
	defer release()
	nav := &navRecorder{}

	g := NewGuard(gw, WithNavigator(nav.navigate))
	g.Start(context.Background())
	g.Close()
	release()

	require.NoError(t, g.Wait(waitCtx(t)))
	time.Sleep(20 * time.Millisecond)

	assert.True(t, g.State().Loading)
	assert.Empty(t, nav.get())

	gw.FakeAuth.Emit(gateway.EventSignedOut, nil)
	assert.Empty(t, nav.get())
}

func TestEventOverridesPendingResolution(t *testing.T) {
	gw := gatewaytest.New()
	release := gw.FakeAuth.BlockResolve()
	defer release()

	g := NewGuard(gw)
	defer g.Close()
	g.Start(context.Background())

	// The blocked resolution still sees the old, signed-out auth state.
	gw.FakeAuth.Emit(gateway.EventSignedIn, gatewaytest.NewSession("u1", "a@example.com"))
	require.NoError(t, g.Wait(waitCtx(t)))
	assert.False(t, g.State().Loading)
	assert.True(t, g.State().SignedIn())

	gw.FakeAuth.SetSession(nil)
	release()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, g.State().SignedIn(), "stale resolution is discarded")
}
