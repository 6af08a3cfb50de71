// Package localauth is the self-hosted auth subsystem used by the mongo,
// postgres and memory gateway drivers. Passwords are bcrypt hashed, sessions
// are HS256 JWTs, and the current session is persisted in the local
// key-value store like a browser client would.
package localauth

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/repository"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists = errors.New("user already registered")
	ErrHashingFailed     = errors.New("failed to hash password")
	ErrTokenGeneration   = errors.New("failed to generate authentication token")
	ErrWeakPassword      = errors.New("password should be at least 6 characters")
)

const (
	issuer          = "fitness-dashboard"
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
	minPasswordLen  = 6
)

// Auth implements gateway.Auth against a UserRepository.
type Auth struct {
	users      repository.UserRepository
	kv         storage.Store
	secret     []byte
	expiration time.Duration
	refreshTTL time.Duration
	notifier   gateway.Notifier
	now        func() time.Time
}

// New creates the auth subsystem. kv may be nil, in which case sessions live
// only in memory for the lifetime of the process.
func New(users repository.UserRepository, kv storage.Store, secret string, expiration time.Duration) *Auth {
	if secret == "" {
		panic("JWT secret cannot be empty")
	}
	if expiration <= 0 {
		expiration = time.Hour
	}
	if kv == nil {
		kv = storage.NewMemoryStore()
	}
	return &Auth{
		users:      users,
		kv:         kv,
		secret:     []byte(secret),
		expiration: expiration,
		refreshTTL: 30 * 24 * time.Hour,
		now:        time.Now,
	}
}

func (a *Auth) OnSessionChange(fn gateway.Listener) func() {
	return a.notifier.Subscribe(fn)
}

// GetCurrentSession reads the persisted session. An expired access token is
// refreshed when the refresh token is still valid; anything unusable is
// discarded and reported as signed out.
func (a *Auth) GetCurrentSession(ctx context.Context) (*domain.Session, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeyAuthSession)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		slog.Warn("Discarding unreadable stored session", "error", err)
		return nil, a.kv.Delete(ctx, storage.KeyAuthSession)
	}
	if _, err := a.parse(sess.AccessToken, tokenUseAccess); err == nil {
		return &sess, nil
	}

	// Access token expired or invalid: try the refresh token.
	claims, err := a.parse(sess.RefreshToken, tokenUseRefresh)
	if err != nil {
		return nil, a.kv.Delete(ctx, storage.KeyAuthSession)
	}
	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, a.kv.Delete(ctx, storage.KeyAuthSession)
		}
		return nil, err
	}
	refreshed, err := a.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	a.notifier.Emit(gateway.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, creds gateway.Credentials) error {
	// 1. Fetch user by email
	user, err := a.users.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return gateway.ErrInvalidCredentials
		}
		return err
	}

	// 2. Compare the provided password with the stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return gateway.ErrInvalidCredentials
	}

	// 3. Issue and persist the session, then tell listeners
	sess, err := a.issue(ctx, user)
	if err != nil {
		return err
	}
	a.notifier.Emit(gateway.EventSignedIn, sess)
	return nil
}

// SignUp registers an account. It does not sign the user in.
func (a *Auth) SignUp(ctx context.Context, creds gateway.Credentials) error {
	email := strings.TrimSpace(creds.Email)
	if len(creds.Password) < minPasswordLen {
		return ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if _, err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.kv.Delete(ctx, storage.KeyAuthSession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.notifier.Emit(gateway.EventSignedOut, nil)
	return nil
}

// --- JWT Helpers ---

type jwtClaims struct {
	Email string `json:"email"`
	Use   string `json:"use"`
	jwt.RegisteredClaims
}

func (a *Auth) issue(ctx context.Context, user *domain.User) (*domain.Session, error) {
	now := a.now()
	expiresAt := now.Add(a.expiration)

	access, err := a.sign(user, tokenUseAccess, now, expiresAt)
	if err != nil {
		return nil, ErrTokenGeneration
	}
	refresh, err := a.sign(user, tokenUseRefresh, now, now.Add(a.refreshTTL))
	if err != nil {
		return nil, ErrTokenGeneration
	}

	sess := &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.Unix(),
		User:         domain.SessionUser{ID: user.ID, Email: user.Email},
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

func (a *Auth) sign(user *domain.User, use string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &jwtClaims{
		Email: user.Email,
		Use:   use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parse(tokenString, use string) (*jwtClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}
	claims := &jwtClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Use != use || claims.Issuer != issuer {
		return nil, errors.New("unexpected token type")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(a.now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}
