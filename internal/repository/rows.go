package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnsureID returns the row's "id", assigning a fresh UUID first when the row
// has none.
func EnsureID(row Row) string {
	if id, ok := row["id"].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	row["id"] = id
	return id
}

// EnsureCreatedAt stamps "created_at" on rows that do not carry one, the way a
// column default would.
func EnsureCreatedAt(row Row, now time.Time) {
	if v, ok := row["created_at"]; ok && v != nil {
		return
	}
	row["created_at"] = now.UTC().Format(time.RFC3339)
}

// CloneRow returns a shallow copy of row.
func CloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// NormalizeValue converts json.Number values into int64 or float64 so that
// drivers which do not understand json.Number store real numbers.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, inner := range n {
			out[k] = NormalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, inner := range n {
			out[i] = NormalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
