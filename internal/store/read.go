package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/records"
)

// DatasetInfo summarises one stored dataset.
type DatasetInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Datasets lists stored datasets ordered by name.
//
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) Datasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset, COUNT(*)
		FROM records
		GROUP BY dataset
		ORDER BY dataset COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	out := []DatasetInfo{}
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Count); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

// Records reads a dataset back in load order.
func (s *Store) Records(ctx context.Context, dataset string) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM records WHERE dataset = ? ORDER BY id ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := []records.Record{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec records.Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Collection returns a handle over dataset. No I/O happens until Sum or
// Count is called.
func (s *Store) Collection(dataset string) *Collection {
	return &Collection{store: s, dataset: dataset}
}

// Collection is a SQLite-backed records.Handle.
type Collection struct {
	store   *Store
	dataset string
	pred    queryir.Predicate
}

// Predicate returns the accumulated filter (nil when unfiltered).
func (c *Collection) Predicate() queryir.Predicate {
	return c.pred
}

// Filter implements records.Handle. The receiver is not modified.
func (c *Collection) Filter(p queryir.Predicate) records.Handle {
	return &Collection{
		store:   c.store,
		dataset: c.dataset,
		pred:    queryir.Conjoin(c.pred, p),
	}
}

// Sum implements records.Handle. Values are read in id order and added as
// decimals, matching records.Collection.
func (c *Collection) Sum(ctx context.Context, field string) (float64, error) {
	query, args, err := c.store.compiler.SumQuery(c.dataset, field, c.pred)
	if err != nil {
		return 0, fmt.Errorf("sum %q: %w", field, err)
	}

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sum %q: %w", field, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("sum %q: scan: %w", field, err)
		}
		if v.Valid {
			total = total.Add(decimal.NewFromFloat(v.Float64))
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sum %q: %w", field, err)
	}
	return total.InexactFloat64(), nil
}

// Count implements records.Handle.
func (c *Collection) Count(ctx context.Context) (int, error) {
	query, args, err := c.store.compiler.CountQuery(c.dataset, c.pred)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	var n int
	if err := c.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
