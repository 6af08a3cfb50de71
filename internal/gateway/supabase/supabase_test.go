package supabase

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/gotrue-go/types"
)

const userID = "6f1c2a8e-8d3b-4d5e-9a51-0a2b3c4d5e6f"

type fakeProject struct {
	mu           sync.Mutex
	authHeaders  []string
	refreshes    int
	refreshFails bool
}

func writeSession(w http.ResponseWriter, accessToken string, expiresAt time.Time) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"refresh_token": "user-refresh-token",
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    expiresAt.Unix(),
		"user":          map[string]any{"id": userID, "email": "lifter@example.com"},
	})
}

func (f *fakeProject) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeaders...)
}

func (f *fakeProject) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/auth/v1/token"):
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if r.URL.Query().Get("grant_type") == "refresh_token" {
				f.mu.Lock()
				f.refreshes++
				fail := f.refreshFails
				f.mu.Unlock()
				if fail || body["refresh_token"] != "user-refresh-token" {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"code":400,"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token"}`))
					return
				}
				writeSession(w, "refreshed-access-token", time.Now().Add(3*time.Hour))
				return
			}
			if body["password"] != "correct-horse" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			writeSession(w, "user-access-token", time.Now().Add(time.Hour))
		case strings.HasSuffix(r.URL.Path, "/auth/v1/logout"):
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/rest/v1/workouts"):
			f.mu.Lock()
			f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
			f.mu.Unlock()
			_, _ = w.Write([]byte(`[{"id":"w1","title":"Leg Day","created_at":"2024-01-02T10:00:00Z"}]`))
		default:
			t.Logf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestNewRequiresConfiguration(t *testing.T) {
	_, err := New("", "key", nil)
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	_, err = New("https://abcd.supabase.co", "", nil)
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
}

func TestExtractProjectRef(t *testing.T) {
	assert.Equal(t, "abcd", extractProjectRef("https://abcd.supabase.co"))
	assert.Equal(t, "abcd", extractProjectRef("abcd.supabase.co"))
}

func TestSignInPersistsSessionAndAuthorizesTables(t *testing.T) {
	fake := &fakeProject{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	ctx := context.Background()
	kv := storage.NewMemoryStore()
	gw, err := New(srv.URL, "anon-key", kv)
	require.NoError(t, err)

	var events []gateway.Event
	unsubscribe := gw.Auth().OnSessionChange(func(e gateway.Event, s *domain.Session) {
		events = append(events, e)
	})
	defer unsubscribe()

	var before []domain.Workout
	require.NoError(t, gw.Table(domain.TableWorkouts).SelectAll(ctx, &before))

	require.NoError(t, gw.Auth().SignInWithPassword(ctx, gateway.Credentials{Email: "lifter@example.com", Password: "correct-horse"}))

	sess, err := gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, userID, sess.User.ID)
	assert.Equal(t, "user-access-token", sess.AccessToken)

	var after []domain.Workout
	require.NoError(t, gw.Table(domain.TableWorkouts).SelectAll(ctx, &after))
	require.Len(t, after, 1)
	assert.Equal(t, "Leg Day", *after[0].Title)

	assert.Equal(t, []string{"Bearer anon-key", "Bearer user-access-token"}, fake.headers())

	require.NoError(t, gw.Auth().SignOut(ctx))
	sess, err = gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	assert.Equal(t, []gateway.Event{gateway.EventSignedIn, gateway.EventSignedOut}, events)
}

func TestSignInWithWrongPassword(t *testing.T) {
	srv := httptest.NewServer((&fakeProject{}).handler(t))
	defer srv.Close()

	gw, err := New(srv.URL, "anon-key", nil)
	require.NoError(t, err)

	err = gw.Auth().SignInWithPassword(context.Background(), gateway.Credentials{Email: "lifter@example.com", Password: "nope"})
	assert.ErrorIs(t, err, gateway.ErrInvalidCredentials)

	sess, err := gw.Auth().GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestExpiredSessionWithoutRefreshTokenIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	gw, err := New("https://abcd.supabase.co", "anon-key", kv)
	require.NoError(t, err)

	raw, _ := json.Marshal(domain.Session{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, string(raw)))

	sess, err := gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	_, ok, _ := kv.Get(ctx, storage.KeyAuthSession)
	assert.False(t, ok)
}

// signedInGateway signs in against fake and then moves the auth clock past
// the token's expiry.
func signedInGateway(t *testing.T, fake *fakeProject) (*Gateway, *[]gateway.Event) {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	gw, err := New(srv.URL, "anon-key", storage.NewMemoryStore())
	require.NoError(t, err)

	var mu sync.Mutex
	events := &[]gateway.Event{}
	unsubscribe := gw.Auth().OnSessionChange(func(e gateway.Event, s *domain.Session) {
		mu.Lock()
		*events = append(*events, e)
		mu.Unlock()
	})
	t.Cleanup(unsubscribe)

	require.NoError(t, gw.Auth().SignInWithPassword(context.Background(), gateway.Credentials{Email: "lifter@example.com", Password: "correct-horse"}))
	gw.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	return gw, events
}

func TestTableQueryRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	fake := &fakeProject{}
	gw, events := signedInGateway(t, fake)

	var workouts []domain.Workout
	require.NoError(t, gw.Table(domain.TableWorkouts).SelectAll(ctx, &workouts))

	assert.Equal(t, []string{"Bearer refreshed-access-token"}, fake.headers())
	assert.Equal(t, []gateway.Event{gateway.EventSignedIn, gateway.EventTokenRefreshed}, *events)

	sess, err := gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "refreshed-access-token", sess.AccessToken)

	fake.mu.Lock()
	assert.Equal(t, 1, fake.refreshes, "a refreshed session is reused")
	fake.mu.Unlock()
}

func TestFailedRefreshSignsOut(t *testing.T) {
	ctx := context.Background()
	fake := &fakeProject{refreshFails: true}
	gw, events := signedInGateway(t, fake)

	var workouts []domain.Workout
	require.NoError(t, gw.Table(domain.TableWorkouts).SelectAll(ctx, &workouts))

	assert.Equal(t, []string{"Bearer anon-key"}, fake.headers())
	assert.Equal(t, []gateway.Event{gateway.EventSignedIn, gateway.EventSignedOut}, *events)

	sess, err := gw.Auth().GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestIsInvalidCredentials(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"legacy grant error", errors.New(`response status code 400: {"error":"invalid_grant","error_description":"Invalid login credentials"}`), true},
		{"error code", errors.New(`response status code 400: {"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`), true},
		{"empty request", types.ErrInvalidTokenRequest, true},
		{"unconfirmed email", errors.New(`response status code 400: {"code":400,"error_code":"email_not_confirmed"}`), false},
		{"server error mentioning 400", errors.New(`response status code 500: {"msg":"upstream returned 400"}`), false},
		{"transport", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isInvalidCredentials(tt.err))
		})
	}
}
