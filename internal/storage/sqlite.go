package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"exchange-ledger/pkg/errors"

	_ "modernc.org/sqlite"
)

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS slots (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteSlot stores a slot as one row of the slots table.
type SQLiteSlot struct {
	db  *sql.DB
	key string
}

// NewSQLiteSlot opens (or creates) the database at path and ensures the
// slots table exists. Use ":memory:" for a throwaway database.
func NewSQLiteSlot(path, key string) (*SQLiteSlot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeStorageRead, path, err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSlotsTable); err != nil {
		db.Close()
		return nil, errors.DataSourceError(errors.CodeStorageWrite, path, err)
	}

	return &SQLiteSlot{db: db, key: key}, nil
}

// Key returns the slot name.
func (s *SQLiteSlot) Key() string {
	return s.key
}

// Read returns the stored value, or ok=false if the row does not exist.
func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", s.key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.DataSourceError(errors.CodeStorageRead, s.key, err)
	}
	return []byte(value), true, nil
}

// Write upserts the stored value.
func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UTC())
	if err != nil {
		return errors.DataSourceError(errors.CodeStorageWrite, s.key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}
