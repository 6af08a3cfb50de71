package postgres

import (
	"alcyxob/fitness-dashboard/internal/repository"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresTableStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresTableStore creates a TableStore that issues plain SQL against
// tables named like the gateway tables.
func NewPostgresTableStore(db *sqlx.DB) repository.TableStore {
	return &postgresTableStore{db: db, now: time.Now}
}

func (s *postgresTableStore) SelectAll(ctx context.Context, table string) ([]repository.Row, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+pq.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	out := []repository.Row{}
	for rows.Next() {
		row := repository.Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, fromColumns(row))
	}
	return out, rows.Err()
}

// Insert writes all rows in one transaction so a multi-row insert is all or
// nothing, like a single PostgREST request.
func (s *postgresTableStore) Insert(ctx context.Context, table string, rows []repository.Row) ([]repository.Row, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now()
	out := make([]repository.Row, 0, len(rows))
	for _, r := range rows {
		row := repository.CloneRow(r)
		repository.EnsureID(row)
		repository.EnsureCreatedAt(row, now)

		query, args := insertStatement(table, row)
		stored := repository.Row{}
		if err := tx.QueryRowxContext(ctx, query, args...).MapScan(stored); err != nil {
			return nil, fmt.Errorf("insert into %s: %w", table, err)
		}
		out = append(out, fromColumns(stored))
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// insertStatement builds an INSERT ... RETURNING * with columns in sorted
// order so statements are deterministic.
func insertStatement(table string, row repository.Row) (string, []any) {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = repository.NormalizeValue(row[c])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return query, args
}

// fromColumns turns driver byte slices into strings so rows encode as JSON text.
func fromColumns(row repository.Row) repository.Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
