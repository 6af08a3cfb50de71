package service

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/observability"
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Messages shown after a successful auth action.
const (
	MsgSignedIn  = "Signed in successfully."
	MsgSignedUp  = "Check your inbox to confirm your account."
	MsgSignedOut = "Signed out."
)

// --- Error Definitions ---
var (
	ErrMissingCredentials = errors.New("email and password are required")
)

// AuthService runs the auth panel actions against the gateway.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (message string, err error)
	SignUp(ctx context.Context, email, password string) (message string, err error)
	SignOut(ctx context.Context) (message string, err error)
	CurrentSession(ctx context.Context) (*domain.Session, error)
}

// authService implements the AuthService interface.
type authService struct {
	gw gateway.Gateway
}

// NewAuthService creates a new instance of authService. gw may be nil when
// the gateway is not configured.
func NewAuthService(gw gateway.Gateway) AuthService {
	return &authService{gw: gw}
}

func (s *authService) credentials(email, password string) (gateway.Credentials, error) {
	creds := gateway.Credentials{Email: strings.TrimSpace(email), Password: password}
	if creds.Email == "" || creds.Password == "" {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}

// SignIn authenticates with email and password.
func (s *authService) SignIn(ctx context.Context, email, password string) (string, error) {
	if s.gw == nil {
		return "", gateway.ErrNotConfigured
	}
	creds, err := s.credentials(email, password)
	if err != nil {
		return "", err
	}
	if err := s.gw.Auth().SignInWithPassword(ctx, creds); err != nil {
		observability.AuthAttempts.WithLabelValues("sign_in", "error").Inc()
		slog.WarnContext(ctx, "Sign-in failed", "email", creds.Email, "error", err)
		return "", err
	}
	observability.AuthAttempts.WithLabelValues("sign_in", "ok").Inc()
	return MsgSignedIn, nil
}

// SignUp registers a new account.
func (s *authService) SignUp(ctx context.Context, email, password string) (string, error) {
	if s.gw == nil {
		return "", gateway.ErrNotConfigured
	}
	creds, err := s.credentials(email, password)
	if err != nil {
		return "", err
	}
	if err := s.gw.Auth().SignUp(ctx, creds); err != nil {
		observability.AuthAttempts.WithLabelValues("sign_up", "error").Inc()
		slog.WarnContext(ctx, "Sign-up failed", "email", creds.Email, "error", err)
		return "", err
	}
	observability.AuthAttempts.WithLabelValues("sign_up", "ok").Inc()
	return MsgSignedUp, nil
}

// SignOut ends the current session.
func (s *authService) SignOut(ctx context.Context) (string, error) {
	if s.gw == nil {
		return "", gateway.ErrNotConfigured
	}
	if err := s.gw.Auth().SignOut(ctx); err != nil {
		observability.AuthAttempts.WithLabelValues("sign_out", "error").Inc()
		return "", err
	}
	observability.AuthAttempts.WithLabelValues("sign_out", "ok").Inc()
	return MsgSignedOut, nil
}

// CurrentSession returns the gateway's current session, nil when signed out.
func (s *authService) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if s.gw == nil {
		return nil, gateway.ErrNotConfigured
	}
	return s.gw.Auth().GetCurrentSession(ctx)
}
