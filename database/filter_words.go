package database

import (
	"context"
	"database/sql"

	apperrors "tanyabot/errors"
)

// FilterWords adapts PostgresStore to filter.Persister.
type FilterWords struct{ *PostgresStore }

func (s *PostgresStore) FilterWords() FilterWords { return FilterWords{s} }

// LoadWords returns ErrNotFound when the table is empty so the caller seeds its defaults.
func (s FilterWords) LoadWords(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT word FROM filter_words ORDER BY position`)
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "query filter words: %v", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "scan filter word: %v", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "iterate filter words: %v", err)
	}
	if len(words) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrNotFound, "no filter words stored")
	}
	return words, nil
}

func (s FilterWords) SaveWords(ctx context.Context, words []string) error {
	return s.rewrite(ctx, "filter_words", func(tx *sql.Tx) error {
		for _, w := range words {
			if _, err := tx.ExecContext(ctx, `INSERT INTO filter_words (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`, w); err != nil {
				return err
			}
		}
		return nil
	})
}
