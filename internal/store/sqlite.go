package store

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/met-local-forecast/internal/registry"
)

// SQLiteStore persists entries with the pure Go driver modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("WARN: could not set WAL mode: %v", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS entries (
        id TEXT PRIMARY KEY,
        unique_id TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL,
        latitude REAL NOT NULL,
        longitude REAL NOT NULL,
        created_at TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, e registry.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries(id, unique_id, name, latitude, longitude, created_at) VALUES(?,?,?,?,?,?)`,
		e.ID, e.UniqueID, e.Name, e.Latitude, e.Longitude, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]registry.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, unique_id, name, latitude, longitude, created_at FROM entries ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]registry.Entry, 0)
	for rows.Next() {
		var e registry.Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.UniqueID, &e.Name, &e.Latitude, &e.Longitude, &ts); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ registry.Store = (*SQLiteStore)(nil)
