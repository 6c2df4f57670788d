package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/interval"
	"github.com/roach88/tally/internal/records"
)

// Label functions name one group bucket from its spec.
type (
	StringLabeler func(compare.StringSpec) string
	NumberLabeler func(compare.NumberRange) string
	DateLabeler   func(compare.DateRange) string
)

// StringGroup produces one node per entry of Values. Without a Label
// function a bucket is named by its spec's "label" key, or "".
type StringGroup struct {
	Field  string
	Values []compare.StringSpec
	Label  StringLabeler
	Next   Stage
}

// NumberGroup produces one node per range. Without a Label function every
// node is marked Unlabeled.
type NumberGroup struct {
	Field  string
	Values []compare.NumberRange
	Label  NumberLabeler
	Next   Stage
}

// DateGroup produces one node per date range. When Values is empty and
// Period is set the ranges come from the interval generator, anchored at
// Now() when the period has no base date. Without a Label function buckets
// are labeled "".
type DateGroup struct {
	Field  string
	Values []compare.DateRange
	Period *interval.Period
	Julian bool
	Label  DateLabeler
	Next   Stage

	// Now supplies the default base date; nil means time.Now.
	Now func() time.Time
}

func (StringGroup) Kind() Kind { return KindGroup }
func (NumberGroup) Kind() Kind { return KindGroup }
func (DateGroup) Kind() Kind   { return KindGroup }

func (s StringGroup) Continuation() Stage { return s.Next }
func (s NumberGroup) Continuation() Stage { return s.Next }
func (s DateGroup) Continuation() Stage   { return s.Next }

func (s StringGroup) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

func (s NumberGroup) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

func (s DateGroup) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

func (s StringGroup) String() string {
	return fmt.Sprintf("group(%s: %d strings)", s.Field, len(s.Values))
}

func (s NumberGroup) String() string {
	return fmt.Sprintf("group(%s: %d ranges)", s.Field, len(s.Values))
}

func (s DateGroup) String() string {
	if len(s.Values) == 0 && s.Period != nil {
		p := s.Period
		return fmt.Sprintf("group(%s: period type=%s length=%d qty=%d direction=%d)",
			s.Field, p.Type, p.Length, p.Qty, p.Direction)
	}
	return fmt.Sprintf("group(%s: %d dates)", s.Field, len(s.Values))
}

// bucket is one child of a group: its label and the filter selecting it.
type bucket struct {
	label     string
	unlabeled bool
	filter    Stage
}

// Execute implements Stage.
func (s StringGroup) Execute(ctx context.Context, h records.Handle) (Result, error) {
	buckets := make([]bucket, len(s.Values))
	for i, spec := range s.Values {
		label := spec.Label()
		if s.Label != nil {
			label = s.Label(spec)
		}
		buckets[i] = bucket{label: label, filter: StringFilter{Field: s.Field, Match: spec}}
	}
	return runGroup(ctx, s.Field, buckets, s.Next, h)
}

// Execute implements Stage.
func (s NumberGroup) Execute(ctx context.Context, h records.Handle) (Result, error) {
	buckets := make([]bucket, len(s.Values))
	for i, r := range s.Values {
		b := bucket{label: UnlabeledLabel, unlabeled: true}
		if s.Label != nil {
			b = bucket{label: s.Label(r)}
		}
		b.filter = NumberFilter{Field: s.Field, Ranges: []compare.NumberRange{r}}
		buckets[i] = b
	}
	return runGroup(ctx, s.Field, buckets, s.Next, h)
}

// Execute implements Stage.
func (s DateGroup) Execute(ctx context.Context, h records.Handle) (Result, error) {
	ranges, err := s.Ranges()
	if err != nil {
		return nil, err
	}
	buckets := make([]bucket, len(ranges))
	for i, r := range ranges {
		label := ""
		if s.Label != nil {
			label = s.Label(r)
		}
		buckets[i] = bucket{
			label:  label,
			filter: DateFilter{Field: s.Field, Ranges: []compare.DateRange{r}, Julian: s.Julian},
		}
	}
	return runGroup(ctx, s.Field, buckets, s.Next, h)
}

// Ranges returns the explicit Values, or the ranges derived from Period.
func (s DateGroup) Ranges() ([]compare.DateRange, error) {
	if len(s.Values) > 0 || s.Period == nil {
		return s.Values, nil
	}
	ranges, err := interval.Generator{Now: s.Now}.Generate(*s.Period)
	if err != nil {
		return nil, &ConfigError{Code: ErrCodeInvalidPeriod, Stage: -1, Message: err.Error()}
	}
	return ranges, nil
}

// runGroup builds one node per bucket, in bucket order. Each bucket's filter
// runs with the group's continuation attached; with no continuation the
// node holds the NoValue sentinel.
func runGroup(ctx context.Context, field string, buckets []bucket, next Stage, h records.Handle) (Result, error) {
	if err := checkStep(ctx, KindGroup); err != nil {
		return nil, err
	}
	slog.Debug("group stage", "field", field, "buckets", len(buckets))

	tree := make(Tree, 0, len(buckets))
	for _, b := range buckets {
		var values Result = NoValue
		if next != nil {
			var err error
			values, err = b.filter.withContinuation(next).Execute(ctx, h)
			if err != nil {
				return nil, fmt.Errorf("group %q bucket %q: %w", field, b.label, err)
			}
		}
		tree = append(tree, Node{Label: b.label, Unlabeled: b.unlabeled, Values: values})
	}
	return tree, nil
}
