// Package supabase is the hosted gateway backend: auth goes through GoTrue
// and tables through PostgREST, both under the project URL.
package supabase

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/postgrest-go"
)

// refreshMargin is how close to expiry a stored session is refreshed.
const refreshMargin = 30 * time.Second

// Gateway talks to a Supabase project.
type Gateway struct {
	restURL string
	apiKey  string
	auth    *Auth
}

// New builds a gateway for the project at projectURL. kv holds the persisted
// session; nil keeps it in memory.
func New(projectURL, apiKey string, kv storage.Store) (*Gateway, error) {
	if projectURL == "" || apiKey == "" {
		return nil, gateway.ErrNotConfigured
	}
	base := strings.TrimRight(projectURL, "/")
	if kv == nil {
		kv = storage.NewMemoryStore()
	}

	client := gotrue.New(extractProjectRef(base), apiKey).WithCustomGoTrueURL(base + "/auth/v1")
	slog.Info("Supabase gateway initialized", "url", base)

	return &Gateway{
		restURL: base + "/rest/v1",
		apiKey:  apiKey,
		auth:    &Auth{client: client, kv: kv, now: time.Now},
	}, nil
}

// extractProjectRef returns the first host label of a Supabase URL,
// e.g. "abcd" for https://abcd.supabase.co.
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return strings.Split(url, ".")[0]
}

func (g *Gateway) Auth() gateway.Auth { return g.auth }

func (g *Gateway) Table(name string) gateway.Table {
	return &table{name: name, gw: g}
}

func (g *Gateway) Close(ctx context.Context) error { return nil }

// rest returns a PostgREST client authorized as the current user, or as the
// anonymous role when signed out. A session close to expiry is refreshed
// first.
func (g *Gateway) rest(ctx context.Context) *postgrest.Client {
	token := g.apiKey
	sess, err := g.auth.ensureFresh(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not read session, querying anonymously", "error", err)
	} else if sess != nil {
		token = sess.AccessToken
	}
	return postgrest.NewClient(g.restURL, "public", map[string]string{
		"apikey":        g.apiKey,
		"Authorization": "Bearer " + token,
	})
}

type table struct {
	name string
	gw   *Gateway
}

func (t *table) SelectAll(ctx context.Context, dest any) error {
	if _, err := t.gw.rest(ctx).From(t.name).Select("*", "", false).ExecuteTo(dest); err != nil {
		return fmt.Errorf("select %s: %w", t.name, err)
	}
	return nil
}

func (t *table) Insert(ctx context.Context, records any) error {
	if _, _, err := t.gw.rest(ctx).From(t.name).Insert(records, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *table) InsertReturning(ctx context.Context, record any, columns string, dest any) error {
	var rows []map[string]any
	if _, err := t.gw.rest(ctx).From(t.name).Insert(record, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	if len(rows) == 0 {
		return gateway.ErrEmptyResult
	}
	raw, err := json.Marshal(gateway.ProjectColumns(rows[0], columns))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Auth wraps a GoTrue client and keeps the session in the key-value store.
type Auth struct {
	client   gotrue.Client
	kv       storage.Store
	notifier gateway.Notifier
	now      func() time.Time

	// refreshMu serializes refreshes; GoTrue refresh tokens are single use.
	refreshMu sync.Mutex
}

func (a *Auth) OnSessionChange(fn gateway.Listener) func() {
	return a.notifier.Subscribe(fn)
}

func (a *Auth) stored(ctx context.Context) (*domain.Session, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeyAuthSession)
	if err != nil || !ok {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, nil
	}
	return &sess, nil
}

func (a *Auth) GetCurrentSession(ctx context.Context) (*domain.Session, error) {
	return a.ensureFresh(ctx)
}

// ensureFresh returns the stored session, refreshing it when it expires
// within refreshMargin. A session that cannot be refreshed is dropped and
// listeners see SIGNED_OUT. Listeners run after refreshMu is released.
func (a *Auth) ensureFresh(ctx context.Context) (*domain.Session, error) {
	a.refreshMu.Lock()
	sess, event, err := a.refreshIfExpiring(ctx)
	a.refreshMu.Unlock()

	if event != "" {
		a.notifier.Emit(event, sess)
	}
	return sess, err
}

func (a *Auth) refreshIfExpiring(ctx context.Context) (*domain.Session, gateway.Event, error) {
	sess, err := a.stored(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("read session: %w", err)
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, "", nil
	}
	if !sess.Expired(a.now().Add(refreshMargin)) {
		return sess, "", nil
	}
	if sess.RefreshToken == "" {
		return nil, gateway.EventSignedOut, a.kv.Delete(ctx, storage.KeyAuthSession)
	}

	res, err := a.client.RefreshToken(sess.RefreshToken)
	if err != nil {
		slog.WarnContext(ctx, "Session refresh failed, signing out locally", "error", err)
		return nil, gateway.EventSignedOut, a.kv.Delete(ctx, storage.KeyAuthSession)
	}
	refreshed, err := a.persist(ctx, res.Session)
	if err != nil {
		return nil, "", err
	}
	slog.DebugContext(ctx, "Session refreshed", "userID", refreshed.User.ID)
	return refreshed, gateway.EventTokenRefreshed, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, creds gateway.Credentials) error {
	res, err := a.client.SignInWithEmailPassword(creds.Email, creds.Password)
	if err != nil {
		if isInvalidCredentials(err) {
			return gateway.ErrInvalidCredentials
		}
		return fmt.Errorf("sign in: %w", err)
	}
	sess, err := a.persist(ctx, res.Session)
	if err != nil {
		return err
	}
	a.notifier.Emit(gateway.EventSignedIn, sess)
	return nil
}

// SignUp registers an account. Projects with auto-confirm enabled return a
// session straight away, which is then treated as a sign-in.
func (a *Auth) SignUp(ctx context.Context, creds gateway.Credentials) error {
	res, err := a.client.Signup(types.SignupRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	if res.AccessToken == "" {
		return nil
	}
	sess, err := a.persist(ctx, res.Session)
	if err != nil {
		return err
	}
	a.notifier.Emit(gateway.EventSignedIn, sess)
	return nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	sess, _ := a.stored(ctx)
	if sess != nil && sess.AccessToken != "" {
		if err := a.client.WithToken(sess.AccessToken).Logout(); err != nil {
			slog.Warn("Remote sign-out failed", "error", err)
		}
	}
	if err := a.kv.Delete(ctx, storage.KeyAuthSession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.notifier.Emit(gateway.EventSignedOut, nil)
	return nil
}

func (a *Auth) persist(ctx context.Context, s types.Session) (*domain.Session, error) {
	expiresAt := s.ExpiresAt
	if expiresAt == 0 && s.ExpiresIn > 0 {
		expiresAt = a.now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	sess := &domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         domain.SessionUser{ID: s.User.ID.String(), Email: s.User.Email},
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := a.kv.Set(ctx, storage.KeyAuthSession, string(raw)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// apiError is a failed GoTrue call. The client reports failures as
// "response status code <n>: <body>"; body carries the error code as
// error_code (current servers) or error (older servers).
type apiError struct {
	Status int
	Code   string
}

func parseAPIError(err error) (apiError, bool) {
	var e apiError
	msg := err.Error()
	if _, scanErr := fmt.Sscanf(msg, "response status code %d", &e.Status); scanErr != nil {
		return e, false
	}
	if _, body, ok := strings.Cut(msg, ": "); ok {
		var payload struct {
			ErrorCode string `json:"error_code"`
			Error     string `json:"error"`
		}
		if json.Unmarshal([]byte(body), &payload) == nil {
			e.Code = payload.ErrorCode
			if e.Code == "" {
				e.Code = payload.Error
			}
		}
	}
	return e, true
}

func isInvalidCredentials(err error) bool {
	if errors.Is(err, types.ErrInvalidTokenRequest) {
		return true
	}
	e, ok := parseAPIError(err)
	if !ok || e.Status != http.StatusBadRequest {
		return false
	}
	return e.Code == "invalid_credentials" || e.Code == "invalid_grant"
}
