package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/records"
)

// Load appends rows to dataset in one transaction and returns the number
// written. Each record is stored as canonical JSON, so time.Time values
// become RFC 3339 strings.
func (s *Store) Load(ctx context.Context, dataset string, rows []records.Record) (int, error) {
	if dataset == "" {
		return 0, fmt.Errorf("load records: dataset name is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRecords(ctx, tx, dataset, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Replace swaps the contents of dataset for rows atomically.
func (s *Store) Replace(ctx context.Context, dataset string, rows []records.Record) (int, error) {
	if dataset == "" {
		return 0, fmt.Errorf("replace records: dataset name is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE dataset = ?`, dataset); err != nil {
			return fmt.Errorf("clear dataset %q: %w", dataset, err)
		}
		return insertRecords(ctx, tx, dataset, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, dataset string, rows []records.Record) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (dataset, doc) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		doc, err := ir.MarshalCanonical(map[string]any(row))
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, dataset, string(doc)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return nil
}
