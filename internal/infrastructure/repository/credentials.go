package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"NSSaDS/ftp/internal/domain"
)

var (
	_ domain.CredentialStore = (*SQLiteCredentialStore)(nil)
	_ domain.CredentialStore = (*MemoryCredentialStore)(nil)
)

const createUsersTable = `CREATE TABLE IF NOT EXISTS users (username TEXT NOT NULL, password TEXT NOT NULL)`

// SQLiteCredentialStore keeps users in the clear in a users table.
// Username uniqueness is checked by Register, not by the schema.
type SQLiteCredentialStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteCredentialStore(path string) (*SQLiteCredentialStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewSQLiteCredentialStore",
		"path":     path,
	}).Info("Credential store opened")

	return &SQLiteCredentialStore{db: db}, nil
}

func (s *SQLiteCredentialStore) Authenticate(ctx context.Context, username, password string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username = ? AND password = ?`, username, password).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return true, nil
}

func (s *SQLiteCredentialStore) Register(ctx context.Context, username, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&one)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to query user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (username, password) VALUES (?, ?)`, username, password); err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit user: %w", err)
	}

	return true, nil
}

func (s *SQLiteCredentialStore) Close() error {
	return s.db.Close()
}

type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{users: make(map[string]string)}
}

func (s *MemoryCredentialStore) Authenticate(ctx context.Context, username, password string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[username]
	return ok && stored == password, nil
}

func (s *MemoryCredentialStore) Register(ctx context.Context, username, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return false, nil
	}
	s.users[username] = password
	return true, nil
}

func (s *MemoryCredentialStore) Close() error {
	return nil
}
