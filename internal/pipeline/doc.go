// Package pipeline composes filter, group and value stages into a single
// runnable chain and produces the labeled result tree.
//
// A chain is data, not closures: every Stage holds a reference to the stage
// that runs after it (its continuation). Compose folds an ordered stage list
// from the tail so that running the entry stage executes the stages in their
// original left-to-right order.
//
//	entry, err := pipeline.Compose(
//		pipeline.StringFilter{Field: "meal", Match: compare.StringSpec{"is": "Breakfast"}},
//		pipeline.DateGroup{Field: "date", Period: &interval.Period{Type: interval.Month, Qty: 3}},
//		pipeline.Sum{Field: "calories"},
//	)
//	result, err := pipeline.Run(ctx, entry, handle)
//
// Stages never mutate the records.Handle they receive; filtering returns a
// new handle. Stage values are immutable once built: Compose copies each
// stage before attaching a continuation.
package pipeline
