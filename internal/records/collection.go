package records

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
)

// Collection is an in-memory Handle.
//
// Thread-safety: a Collection is never modified after construction, so it
// may be read from several goroutines. The records themselves are shared,
// not copied; callers must not mutate them while handles are in use.
type Collection struct {
	rows []Record
}

// NewCollection wraps rows in a handle. The slice is cloned; the records are not.
func NewCollection(rows []Record) *Collection {
	return &Collection{rows: slices.Clone(rows)}
}

// Records returns a copy of the handle's rows, in original order.
func (c *Collection) Records() []Record {
	return slices.Clone(c.rows)
}

// Len returns the number of rows without a context.
func (c *Collection) Len() int {
	return len(c.rows)
}

// Filter implements Handle.
func (c *Collection) Filter(p queryir.Predicate) Handle {
	out := make([]Record, 0, len(c.rows))
	for _, r := range c.rows {
		if Eval(p, r) {
			out = append(out, r)
		}
	}
	return &Collection{rows: out}
}

// Sum implements Handle. Values are accumulated as decimals so that sums of
// fractional values do not drift with row order.
func (c *Collection) Sum(_ context.Context, field string) (float64, error) {
	total := decimal.Zero
	for _, r := range c.rows {
		v, ok := r.Field(field)
		if !ok {
			continue
		}
		f, ok := compare.ToFloat(v)
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromFloat(f))
	}
	return total.InexactFloat64(), nil
}

// Count implements Handle.
func (c *Collection) Count(_ context.Context) (int, error) {
	return len(c.rows), nil
}
