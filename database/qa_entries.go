package database

import (
	"context"
	"database/sql"

	apperrors "tanyabot/errors"
	"tanyabot/qa"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// QAStore adapts PostgresStore to qa.Persister.
type QAStore struct{ *PostgresStore }

func (s *PostgresStore) QA() QAStore { return QAStore{s} }

func (s QAStore) Load(ctx context.Context) ([]qa.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT question, answers FROM qa_entries ORDER BY position`)
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "query qa entries: %v", err)
	}
	defer rows.Close()

	var entries []qa.Entry
	for rows.Next() {
		var e qa.Entry
		var answers pq.StringArray
		if err := rows.Scan(&e.Question, &answers); err != nil {
			return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "scan qa entry: %v", err)
		}
		e.Answers = []string(answers)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "iterate qa entries: %v", err)
	}

	s.logger.Debug("Loaded QA entries from database", zap.Int("questions", len(entries)))
	return entries, nil
}

func (s QAStore) Save(ctx context.Context, entries []qa.Entry) error {
	return s.rewrite(ctx, "qa_entries", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO qa_entries (question, answers) VALUES ($1, $2)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Question, pq.Array(e.Answers)); err != nil {
				return err
			}
		}
		return nil
	})
}
