package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// ErrClosed is returned by operations on a closed sink.
var ErrClosed = errors.New("sqlite: sink closed")

// Sink stores serialized entries in a SQLite database. Values are kept as
// JSON text; every overwritten value is appended to entry_history.
type Sink struct {
	mu     sync.Mutex
	db     *sql.DB
	codec  *codec.Codec
	logger *slog.Logger
	now    func() time.Time
}

// Revision is one prior value of a key.
type Revision struct {
	Key       string
	Value     string
	ChangedBy string
	CreatedAt time.Time
}

// Open opens or creates the database at path and ensures its schema.
func Open(path string, c *codec.Codec, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Sink{
		db:     db,
		codec:  c,
		logger: logger.With("component", "sqlite", "path", path),
		now:    time.Now,
	}, nil
}

// Load reassembles the stored rows into one document and applies it to the
// store. Keys without a row keep their current values.
func (s *Sink) Load(store *tree.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	rows, err := s.db.Query(`SELECT key, value FROM entries ORDER BY key`)
	if err != nil {
		return fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	doc := []byte("{}")
	n := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		if !gjson.Valid(value) {
			s.logger.Warn("skipping corrupt entry", "key", key)
			continue
		}
		if doc, err = sjson.SetRawBytes(doc, gjson.Escape(key), []byte(value)); err != nil {
			return fmt.Errorf("assembling %s: %w", key, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	entries, err := codec.JSONFormat{}.Unmarshal(doc)
	if err != nil {
		return err
	}
	s.logger.Debug("loaded entries", "count", n)
	return s.codec.Apply(store, entries)
}

// Save writes every serialized entry of the store in one transaction. Rows
// whose value is unchanged are left alone; changed rows record the previous
// value in entry_history.
func (s *Sink) Save(store *tree.Store) error {
	entries, err := s.codec.Entries(store)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	by := store.ID().String()
	at := s.now().UTC().Format(time.RFC3339Nano)
	changed := 0
	for _, e := range entries {
		raw, err := codec.EncodeValue(e.Value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", e.Key, err)
		}
		value := string(raw)

		var prev string
		err = tx.QueryRow(`SELECT value FROM entries WHERE key = ?`, e.Key).Scan(&prev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.Exec(`INSERT INTO entries (key, value, updated_by, updated_at) VALUES (?, ?, ?, ?)`,
				e.Key, value, by, at)
		case err != nil:
		case prev == value:
			continue
		default:
			if _, err = tx.Exec(`INSERT INTO entry_history (history_id, key, value, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
				generateUUID(), e.Key, prev, by, at); err == nil {
				_, err = tx.Exec(`UPDATE entries SET value = ?, updated_by = ?, updated_at = ? WHERE key = ?`,
					value, by, at, e.Key)
			}
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", e.Key, err)
		}
		changed++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("saved settings", "changed", changed, "total", len(entries))
	return nil
}

// History returns the previous values of key, newest first.
func (s *Sink) History(key string) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT key, value, changed_by, created_at FROM entry_history
WHERE key = ? ORDER BY created_at DESC, rowid DESC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var at string
		if err := rows.Scan(&r.Key, &r.Value, &r.ChangedBy, &at); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database. Close is idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// generateUUID generates a UUID v7 for history rows.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
