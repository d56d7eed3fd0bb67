package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore keeps documents in a PostgreSQL table
type PostgresStore struct {
	pool   *pgxpool.Pool
	scope  string
	logger *zap.Logger
}

// NewPostgresStore creates a connection pool and the documents table
func NewPostgresStore(ctx context.Context, dsn, scope string, logger *zap.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			scope TEXT NOT NULL,
			doc_key TEXT NOT NULL,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (scope, doc_key)
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		scope:  scope,
		logger: logger,
	}, nil
}

// Get returns the document stored under key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM documents WHERE scope = $1 AND doc_key = $2
	`, s.scope, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query document: %w", err)
	}
	return value, true, nil
}

// Put replaces the document stored under key
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (scope, doc_key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (scope, doc_key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, s.scope, key, value)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Debug("Stored document", zap.String("scope", s.scope), zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Stop closes the connection pool
func (s *PostgresStore) Stop() {
	s.pool.Close()
}
