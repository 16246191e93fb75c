package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the session in a local SQLite file so it survives
// process restarts.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

// OpenSQLiteStore opens (creating if needed) the database at path and runs
// migrations. The returned store owns the connection and must be closed.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// NewSQLiteStore wraps an existing connection and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Close releases the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if s == nil || !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Save implements [Store].
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	userRaw, err := validateForSave(sess)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		const upsert = `INSERT INTO session_kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, upsert, KeyToken, sess.Token); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, upsert, KeyUser, string(userRaw))
		return err
	})
}

// Load implements [Store].
func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM session_kv WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var (
		token, userRaw    string
		hasToken, hasUser bool
	)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		switch key {
		case KeyToken:
			token, hasToken = value, true
		case KeyUser:
			userRaw, hasUser = value, true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, ok := assemble(token, hasToken, []byte(userRaw), hasUser)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Clear implements [Store].
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key IN (?, ?)`, KeyToken, KeyUser)
		return err
	})
}

// HasToken implements [Store].
func (s *SQLiteStore) HasToken(ctx context.Context) (bool, error) {
	token, err := s.Token(ctx)
	return token != "", err
}

// Token implements [Store].
func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, KeyToken).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}

// SetRaw writes a single key without validation.
func (s *SQLiteStore) SetRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
