package localauth

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/repository/memory"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	event   gateway.Event
	session *domain.Session
}

func newAuth(t *testing.T) (*Auth, *storage.MemoryStore, *[]recorded) {
	t.Helper()
	kv := storage.NewMemoryStore()
	a := New(memory.New(), kv, "test-secret", time.Hour)
	var events []recorded
	a.OnSessionChange(func(e gateway.Event, s *domain.Session) {
		events = append(events, recorded{e, s})
	})
	return a, kv, &events
}

var creds = gateway.Credentials{Email: "lifter@example.com", Password: "hunter22"}

func TestSignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	a, kv, events := newAuth(t)

	require.NoError(t, a.SignUp(ctx, creds))

	sess, err := a.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess, "sign-up must not sign in")

	require.NoError(t, a.SignInWithPassword(ctx, creds))
	require.Len(t, *events, 1)
	assert.Equal(t, gateway.EventSignedIn, (*events)[0].event)
	assert.Equal(t, "lifter@example.com", (*events)[0].session.User.Email)

	_, ok, _ := kv.Get(ctx, storage.KeyAuthSession)
	assert.True(t, ok)

	sess, err = a.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.User.ID)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.False(t, sess.Expired(time.Now()))
}

func TestSignUpRejectsDuplicateAndWeakPassword(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)

	require.NoError(t, a.SignUp(ctx, creds))
	assert.ErrorIs(t, a.SignUp(ctx, creds), ErrUserAlreadyExists)
	assert.ErrorIs(t, a.SignUp(ctx, gateway.Credentials{Email: "x@example.com", Password: "123"}), ErrWeakPassword)
}

func TestSignInWithBadCredentials(t *testing.T) {
	ctx := context.Background()
	a, _, events := newAuth(t)
	require.NoError(t, a.SignUp(ctx, creds))

	err := a.SignInWithPassword(ctx, gateway.Credentials{Email: creds.Email, Password: "wrong-password"})
	assert.ErrorIs(t, err, gateway.ErrInvalidCredentials)

	err = a.SignInWithPassword(ctx, gateway.Credentials{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, gateway.ErrInvalidCredentials)
	assert.Empty(t, *events)
}

func TestSignOutClearsSession(t *testing.T) {
	ctx := context.Background()
	a, kv, events := newAuth(t)
	require.NoError(t, a.SignUp(ctx, creds))
	require.NoError(t, a.SignInWithPassword(ctx, creds))

	require.NoError(t, a.SignOut(ctx))

	_, ok, _ := kv.Get(ctx, storage.KeyAuthSession)
	assert.False(t, ok)
	last := (*events)[len(*events)-1]
	assert.Equal(t, gateway.EventSignedOut, last.event)
	assert.Nil(t, last.session)

	sess, err := a.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	ctx := context.Background()
	a, _, events := newAuth(t)
	require.NoError(t, a.SignUp(ctx, creds))
	require.NoError(t, a.SignInWithPassword(ctx, creds))

	first, err := a.GetCurrentSession(ctx)
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sess, err := a.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, first.User.ID, sess.User.ID)
	assert.Greater(t, sess.ExpiresAt, first.ExpiresAt)

	last := (*events)[len(*events)-1]
	assert.Equal(t, gateway.EventTokenRefreshed, last.event)
}

func TestUnusableStoredSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	a, kv, _ := newAuth(t)

	require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, "{not json"))
	sess, err := a.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	_, ok, _ := kv.Get(ctx, storage.KeyAuthSession)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, `{"access_token":"forged","refresh_token":"forged"}`))
	sess, err = a.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
