package gateway

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/repository"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Local is a gateway assembled from a self-hosted auth subsystem and a
// repository.TableStore (memory, mongo or postgres). Table access needs a
// session, and rows are scoped to the signed-in user the way the hosted
// backend's row level policies scope them.
type Local struct {
	auth   Auth
	tables repository.TableStore
	closer func(ctx context.Context) error
}

// NewLocal builds a Local gateway. closer, if non-nil, runs on Close.
func NewLocal(auth Auth, tables repository.TableStore, closer func(ctx context.Context) error) *Local {
	return &Local{auth: auth, tables: tables, closer: closer}
}

func (g *Local) Auth() Auth { return g.auth }

func (g *Local) Table(name string) Table {
	return &localTable{name: name, store: g.tables, auth: g.auth}
}

func (g *Local) Close(ctx context.Context) error {
	if g.closer == nil {
		return nil
	}
	return g.closer(ctx)
}

// ownerColumns names, per table, the column holding the owning user's id.
var ownerColumns = map[string]string{
	domain.TableWorkouts: "user_id",
	domain.TableProfiles: "id",
}

type localTable struct {
	name  string
	store repository.TableStore
	auth  Auth
}

func (t *localTable) SelectAll(ctx context.Context, dest any) error {
	userID, err := t.currentUser(ctx)
	if err != nil {
		return err
	}
	rows, err := t.visibleRows(ctx, userID)
	if err != nil {
		return fmt.Errorf("select %s: %w", t.name, err)
	}
	return decodeInto(rows, dest)
}

func (t *localTable) Insert(ctx context.Context, records any) error {
	userID, err := t.currentUser(ctx)
	if err != nil {
		return err
	}
	rows, err := ToRows(records)
	if err != nil {
		return err
	}
	if err := t.claim(ctx, userID, rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	if _, err := t.store.Insert(ctx, t.name, rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *localTable) InsertReturning(ctx context.Context, record any, columns string, dest any) error {
	userID, err := t.currentUser(ctx)
	if err != nil {
		return err
	}
	rows, err := ToRows(record)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("insert %s: expected a single record, got %d", t.name, len(rows))
	}
	if err := t.claim(ctx, userID, rows); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	stored, err := t.store.Insert(ctx, t.name, rows)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	if len(stored) == 0 {
		return ErrEmptyResult
	}
	return decodeInto(ProjectColumns(stored[0], columns), dest)
}

func (t *localTable) currentUser(ctx context.Context) (string, error) {
	if t.auth == nil {
		return "", ErrNotAuthenticated
	}
	sess, err := t.auth.GetCurrentSession(ctx)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if sess == nil || sess.User.ID == "" {
		return "", ErrNotAuthenticated
	}
	return sess.User.ID, nil
}

// visibleRows returns the rows of the table userID may read. Exercises are
// visible through their workout.
func (t *localTable) visibleRows(ctx context.Context, userID string) ([]repository.Row, error) {
	rows, err := t.store.SelectAll(ctx, t.name)
	if err != nil {
		return nil, err
	}
	out := make([]repository.Row, 0, len(rows))
	if col, ok := ownerColumns[t.name]; ok {
		for _, r := range rows {
			if idString(r[col]) == userID {
				out = append(out, r)
			}
		}
		return out, nil
	}
	if t.name == domain.TableWorkoutExercises {
		workouts, err := t.ownedWorkouts(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if _, ok := workouts[idString(r["workout_id"])]; ok {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return append(out, rows...), nil
}

// claim stamps the owner column on rows that lack it and rejects rows that
// name another user or a workout userID cannot see.
func (t *localTable) claim(ctx context.Context, userID string, rows []repository.Row) error {
	if col, ok := ownerColumns[t.name]; ok {
		for _, r := range rows {
			switch idString(r[col]) {
			case "":
				r[col] = userID
			case userID:
			default:
				return ErrPermissionDenied
			}
		}
		return nil
	}
	if t.name == domain.TableWorkoutExercises {
		workouts, err := t.ownedWorkouts(ctx, userID)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if _, ok := workouts[idString(r["workout_id"])]; !ok {
				return ErrPermissionDenied
			}
		}
	}
	return nil
}

func (t *localTable) ownedWorkouts(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := t.store.SelectAll(ctx, domain.TableWorkouts)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if idString(r["user_id"]) == userID {
			ids[idString(r["id"])] = struct{}{}
		}
	}
	return ids, nil
}

func idString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ToRows converts a struct, map, or slice of either into rows keyed by their
// JSON field names. Numbers stay exact and are normalized to int64/float64.
func ToRows(records any) ([]repository.Row, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	switch v := generic.(type) {
	case map[string]any:
		return []repository.Row{repository.NormalizeValue(v).(map[string]any)}, nil
	case []any:
		rows := make([]repository.Row, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d is not an object", i)
			}
			rows = append(rows, repository.NormalizeValue(m).(map[string]any))
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("records must be an object or a list of objects")
	}
}

// ProjectColumns keeps only the comma separated columns of row. "" and "*"
// keep everything.
func ProjectColumns(row repository.Row, columns string) repository.Row {
	columns = strings.TrimSpace(columns)
	if columns == "" || columns == "*" {
		return row
	}
	out := make(repository.Row)
	for _, c := range strings.Split(columns, ",") {
		c = strings.TrimSpace(c)
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func decodeInto(v any, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}
