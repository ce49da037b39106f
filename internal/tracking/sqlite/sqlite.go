// Package sqlite persists analytics events to a local SQLite database
// (pure-Go driver), for offline inspection or later upload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/crimson-sun/launchpad/internal/tracking"
	"github.com/crimson-sun/launchpad/pkg/analytics"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	params_json TEXT,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_name ON events(name);
`

// Record is a stored event with its storage metadata.
type Record struct {
	ID         string
	Event      analytics.CustomEvent
	RecordedAt time.Time
}

// Store is an analytics.Sink backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	_, err := db.Exec(schema)
	return err
}

// Track inserts the event.
func (s *Store) Track(ctx context.Context, ev analytics.Event) error {
	if ev == nil {
		return analytics.ErrEmptyName
	}
	var params sql.NullString
	if p := ev.Params(); len(p) > 0 {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("sqlite: encode params for %s: %w", ev.Name(), err)
		}
		params = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, name, params_json, recorded_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), ev.Name(), params, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: insert %s: %w", ev.Name(), err)
	}
	return nil
}

// Events returns stored events in insertion order. An empty name returns
// every event; otherwise only events with that name.
func (s *Store) Events(ctx context.Context, name string) ([]Record, error) {
	q := `SELECT id, name, params_json, recorded_at FROM events`
	var args []any
	if name != "" {
		q += ` WHERE name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY recorded_at, rowid`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id, evName string
			params     sql.NullString
			ts         int64
		)
		if err := rows.Scan(&id, &evName, &params, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		var m map[string]any
		if params.Valid {
			var err error
			if m, err = decodeParams(params.String); err != nil {
				return nil, fmt.Errorf("sqlite: decode params for %s: %w", id, err)
			}
		}
		ev, err := analytics.NewCustomEvent(evName, m)
		if err != nil {
			return nil, fmt.Errorf("sqlite: row %s: %w", id, err)
		}
		out = append(out, Record{ID: id, Event: ev, RecordedAt: time.Unix(0, ts)})
	}
	return out, rows.Err()
}

// decodeParams reads stored params back. Integral numbers come back as
// int64 and all other numbers as float64, so large integers keep their
// precision.
func decodeParams(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	for k, v := range m {
		m[k] = fromNumbers(v)
	}
	return m, nil
}

func fromNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = fromNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = fromNumbers(x[k])
		}
		return x
	default:
		return v
	}
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

// Purge deletes events recorded before cutoff and returns how many were removed.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func init() {
	tracking.Register("sqlite", func(cfg tracking.Config) (analytics.Sink, error) {
		if cfg.DBPath == "" {
			return nil, errors.New("sqlite: no database path configured")
		}
		return Open(cfg.DBPath)
	})
}
