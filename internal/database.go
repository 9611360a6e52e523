package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const tokenKey = "auth.token"

const createStateTable = `CREATE TABLE IF NOT EXISTS client_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenDatabase opens (creating if needed) the local state database
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(createStateTable); err != nil {
		return fmt.Errorf("failed to create state table: %w", err)
	}
	return nil
}

// GetState returns the value stored under key; ok is false when absent
func GetState(db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM client_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query failed: %w", err)
	}
	return value, true, nil
}

// PutState upserts a key/value pair
func PutState(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// DeleteState removes key; deleting an absent key is not an error
func DeleteState(db *sql.DB, key string) error {
	if _, err := db.Exec("DELETE FROM client_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// SQLiteStore keeps the credential in the local state database
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens the state database at path as a credential store
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StoreError{Path: path, Op: "open", Err: err}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStore wraps an already open database, creating the state table if needed
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := initSchema(db); err != nil {
		return nil, &StoreError{Path: ":memory:", Op: "open", Err: err}
	}
	return &SQLiteStore{db: db, path: ":memory:"}, nil
}

func (s *SQLiteStore) Token() (string, error) {
	token, _, err := GetState(s.db, tokenKey)
	if err != nil {
		return "", &StoreError{Path: s.path, Op: "read", Err: err}
	}
	return token, nil
}

func (s *SQLiteStore) SetToken(token string) error {
	if err := PutState(s.db, tokenKey, token); err != nil {
		return &StoreError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

func (s *SQLiteStore) ClearToken() error {
	if err := DeleteState(s.db, tokenKey); err != nil {
		return &StoreError{Path: s.path, Op: "clear", Err: err}
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
