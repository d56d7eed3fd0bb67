package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore keeps documents in a MySQL table
type MySQLStore struct {
	db     *sql.DB
	scope  string
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and creates the documents table
func NewMySQLStore(dsn, scope string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			scope VARCHAR(191) NOT NULL,
			doc_key VARCHAR(191) NOT NULL,
			value LONGBLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (scope, doc_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		scope:  scope,
		logger: logger,
	}, nil
}

// Get returns the document stored under key
func (s *MySQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
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
func (s *MySQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (scope, doc_key, value)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)
	`, s.scope, key, value)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Debug("Stored document", zap.String("scope", s.scope), zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Stop closes the database connection
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
