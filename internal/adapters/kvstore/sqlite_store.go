package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore keeps documents in a SQLite table
type SQLiteStore struct {
	db     *sql.DB
	scope  string
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath
func NewSQLiteStore(dbPath, scope string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			scope TEXT NOT NULL,
			doc_key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (scope, doc_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		scope:  scope,
		logger: logger,
	}, nil
}

// Get returns the document stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM documents WHERE scope = ? AND doc_key = ?
	`, s.scope, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query document: %w", err)
	}
	return value, true, nil
}

// Put replaces the document stored under key
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (scope, doc_key, value, updated_at)
		VALUES (?, ?, ?, ?)
	`, s.scope, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Debug("Stored document", zap.String("scope", s.scope), zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
