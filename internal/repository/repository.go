package repository

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"context"
)

// Error constants for the repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrDuplicateUser = RepositoryError("user with this email already exists")
	ErrUnknownTable  = RepositoryError("unknown table")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Row is a single table record keyed by column name. Values are whatever
// encoding/json produces (string, json.Number, bool, nil, nested maps).
type Row = map[string]any

// UserRepository stores accounts for backends that authenticate locally.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// TableStore is a table-oriented row store. Implementations assign an "id"
// to every inserted row that lacks one and return the stored rows.
type TableStore interface {
	SelectAll(ctx context.Context, table string) ([]Row, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
}
