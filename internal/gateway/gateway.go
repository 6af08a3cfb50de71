// Package gateway defines the remote data capability the dashboard consumes:
// an auth subsystem that issues sessions and a table interface that supports
// full reads and inserts. Backends live in sub-packages.
package gateway

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no gateway handle could be built.
	ErrNotConfigured = errors.New("gateway is not configured")
	// ErrInvalidCredentials is returned by sign-in for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrEmptyResult is returned by InsertReturning when nothing came back.
	ErrEmptyResult = errors.New("insert returned no rows")
	// ErrPermissionDenied is returned when a write targets another user's rows.
	ErrPermissionDenied = errors.New("row belongs to another user")
)

// Event names an auth state transition.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth state changes. session is nil after sign-out.
type Listener func(event Event, session *domain.Session)

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth is the gateway's auth subsystem.
type Auth interface {
	// GetCurrentSession returns the persisted session, or nil when signed out.
	GetCurrentSession(ctx context.Context) (*domain.Session, error)
	// OnSessionChange registers fn and returns a function that removes it.
	OnSessionChange(fn Listener) (unsubscribe func())
	SignInWithPassword(ctx context.Context, creds Credentials) error
	SignUp(ctx context.Context, creds Credentials) error
	SignOut(ctx context.Context) error
}

// Table is a single remote table.
type Table interface {
	// SelectAll decodes every row into dest, a pointer to a slice.
	SelectAll(ctx context.Context, dest any) error
	// Insert writes one record or a slice of records.
	Insert(ctx context.Context, records any) error
	// InsertReturning writes one record and decodes the listed columns of the
	// stored row into dest. columns is a comma separated list or "*".
	InsertReturning(ctx context.Context, record any, columns string, dest any) error
}

// Gateway is one configured connection to the backend.
type Gateway interface {
	Auth() Auth
	Table(name string) Table
	Close(ctx context.Context) error
}
