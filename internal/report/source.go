package report

import (
	"context"

	"github.com/roach88/tally/internal/records"
	"github.com/roach88/tally/internal/store"
)

// HandleSource always returns h. Handles are immutable, so reusing one is
// safe.
func HandleSource(h records.Handle) Source {
	return func(context.Context) (records.Handle, error) {
		return h, nil
	}
}

// StoreSource reads dataset from s. Every update sees the rows present at
// the time it runs.
func StoreSource(s *store.Store, dataset string) Source {
	return func(context.Context) (records.Handle, error) {
		return s.Collection(dataset), nil
	}
}
