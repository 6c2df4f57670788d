// Package report is the entry point for consumers: it binds a record source,
// a stage list and a formatter, and recomputes both the raw result tree and
// its formatted form on demand.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tally/internal/format"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/records"
)

// Source returns a fresh handle over the current records. It is called once
// per Update.
type Source func(ctx context.Context) (records.Handle, error)

// Config describes a report.
type Config struct {
	// Source supplies the records. Required.
	Source Source

	// Stages run left to right. Required.
	Stages []pipeline.Stage

	// Formatter shapes the raw result. Defaults to format.Raw.
	Formatter format.Formatter
}

// ErrNoSource is returned by New when Config.Source is nil.
var ErrNoSource = errors.New("report: no record source")

// Snapshot is the outcome of one successful Update.
type Snapshot struct {
	// Seq numbers successful updates from 1.
	Seq int64

	// Raw is the result tree produced by the pipeline.
	Raw pipeline.Result

	// Formatted is Raw after the formatter ran.
	Formatted any

	// Hash is the content hash of Raw. Empty when Raw is a handle.
	Hash string

	// Changed is true when Hash differs from the previous snapshot's.
	Changed bool
}

// Report recomputes a pipeline against its source.
//
// Thread-safety: Update, Raw, Formatted and Last are safe for concurrent
// use. Concurrent updates are serialised.
type Report struct {
	source    Source
	entry     pipeline.Stage
	formatter format.Formatter
	maxSteps  int

	updateMu sync.Mutex
	mu       sync.RWMutex
	last     *Snapshot
	seq      int64
}

// Option configures a Report.
type Option func(*Report)

// WithMaxSteps bounds the stage executions of each update.
//
// Default: pipeline.DefaultMaxSteps. A value <= 0 disables the limit.
func WithMaxSteps(maxSteps int) Option {
	return func(r *Report) {
		r.maxSteps = maxSteps
	}
}

// New validates cfg and composes its stages. Configuration problems are
// reported here, before any record is read.
func New(cfg Config, opts ...Option) (*Report, error) {
	if cfg.Source == nil {
		return nil, ErrNoSource
	}
	entry, err := pipeline.Compose(cfg.Stages...)
	if err != nil {
		return nil, err
	}
	f := cfg.Formatter
	if f == nil {
		f = format.Raw{}
	}

	r := &Report{
		source:    cfg.Source,
		entry:     entry,
		formatter: f,
		maxSteps:  pipeline.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Update runs the pipeline against a fresh handle from the source, formats
// the result and stores both. On error the previous snapshot is kept.
func (r *Report) Update(ctx context.Context) (*Snapshot, error) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	h, err := r.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("report source: %w", err)
	}
	raw, err := pipeline.Run(ctx, r.entry, h, pipeline.WithMaxSteps(r.maxSteps))
	if err != nil {
		return nil, err
	}
	formatted, err := r.formatter.Format(raw)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", r.formatter.Name(), err)
	}

	var hash string
	if _, isHandle := raw.(pipeline.HandleResult); !isHandle {
		hash, err = ir.ResultHash(raw)
		if err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	snap := &Snapshot{
		Seq:       r.seq,
		Raw:       raw,
		Formatted: formatted,
		Hash:      hash,
		Changed:   r.last == nil || r.last.Hash != hash,
	}
	r.last = snap
	slog.Debug("report updated", "seq", snap.Seq, "formatter", r.formatter.Name(), "changed", snap.Changed)
	return snap, nil
}

// Raw returns the raw result of the last successful update, or nil.
func (r *Report) Raw() pipeline.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	return r.last.Raw
}

// Formatted returns the formatted result of the last successful update, or nil.
func (r *Report) Formatted() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	return r.last.Formatted
}

// Last returns the last successful snapshot, or nil.
func (r *Report) Last() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Describe renders the composed stage chain.
func (r *Report) Describe() string {
	return pipeline.Describe(r.entry)
}
