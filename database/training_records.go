package database

import (
	"context"
	"database/sql"

	apperrors "tanyabot/errors"
	"tanyabot/qa"
)

// TrainingRecords adapts PostgresStore to qa.RecordPersister.
type TrainingRecords struct{ *PostgresStore }

func (s *PostgresStore) TrainingRecords() TrainingRecords { return TrainingRecords{s} }

func (s TrainingRecords) LoadRecords(ctx context.Context) ([]qa.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT query, response FROM training_records ORDER BY id`)
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "query training records: %v", err)
	}
	defer rows.Close()

	var records []qa.Record
	for rows.Next() {
		var r qa.Record
		if err := rows.Scan(&r.Query, &r.Response); err != nil {
			return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "scan training record: %v", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrPersistence, "iterate training records: %v", err)
	}
	return records, nil
}

func (s TrainingRecords) SaveRecords(ctx context.Context, records []qa.Record) error {
	return s.rewrite(ctx, "training_records", func(tx *sql.Tx) error {
		for _, r := range records {
			if _, err := tx.ExecContext(ctx, `INSERT INTO training_records (query, response) VALUES ($1, $2)`, r.Query, r.Response); err != nil {
				return err
			}
		}
		return nil
	})
}
