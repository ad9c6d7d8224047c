// Package database is the PostgreSQL backend for the QA store, the filter
// word list and the training log. Every save rewrites its table in full
// inside one transaction.
package database

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "tanyabot/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PostgresStore struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrPersistence, err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "ping database: %v", err)
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{DB: db, logger: logger}, nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS qa_entries (
            question TEXT PRIMARY KEY,
            answers TEXT[] NOT NULL DEFAULT '{}'::TEXT[],
            position BIGSERIAL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_qa_entries_position ON qa_entries(position)`,
		`CREATE TABLE IF NOT EXISTS filter_words (
            word TEXT PRIMARY KEY,
            position BIGSERIAL
        )`,
		`CREATE TABLE IF NOT EXISTS training_records (
            id BIGSERIAL PRIMARY KEY,
            query TEXT NOT NULL,
            response TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// rewrite replaces the contents of table inside a transaction; insert is
// called once with the open transaction to add the new rows.
func (s *PostgresStore) rewrite(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrPersistence, "begin %s rewrite: %v", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrPersistence, "clear %s: %v", table, err)
	}
	if err := insert(tx); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrPersistence, "insert into %s: %v", table, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrPersistence, "commit %s rewrite: %v", table, err)
	}
	return nil
}
