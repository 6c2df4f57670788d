package report

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/format"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/records"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
)

// mealByFood groups by meal, then food, and sums calories.
func mealByFood() []pipeline.Stage {
	return []pipeline.Stage{
		pipeline.StringGroup{Field: "meal", Values: compare.WrapStrings("is", []string{"Breakfast", "Lunch"}, true)},
		pipeline.StringGroup{Field: "food", Values: compare.WrapStrings("is", []string{"Eggs", "Salad"}, true)},
		pipeline.Sum{Field: "calories"},
	}
}

func wantRaw() pipeline.Tree {
	return pipeline.Tree{
		{Label: "Breakfast", Values: pipeline.Tree{
			{Label: "Eggs", Values: pipeline.Scalar(100)},
			{Label: "Salad", Values: pipeline.Scalar(0)},
		}},
		{Label: "Lunch", Values: pipeline.Tree{
			{Label: "Eggs", Values: pipeline.Scalar(0)},
			{Label: "Salad", Values: pipeline.Scalar(80.5)},
		}},
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	src := HandleSource(testutil.MealsCollection())

	_, err := New(Config{Stages: mealByFood()})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = New(Config{Source: src})
	assert.True(t, pipeline.HasConfigCode(err, pipeline.ErrCodeEmptyPipeline))

	_, err = New(Config{Source: src, Stages: mealByFood()[:2]})
	assert.True(t, pipeline.HasConfigCode(err, pipeline.ErrCodeMissingContinuation))
}

func TestUpdate_ExposesRawAndFormatted(t *testing.T) {
	r, err := New(Config{
		Source:    HandleSource(testutil.MealsCollection()),
		Stages:    mealByFood(),
		Formatter: format.Chart{},
	})
	require.NoError(t, err)

	assert.Nil(t, r.Raw())
	assert.Nil(t, r.Formatted())
	assert.Nil(t, r.Last())

	snap, err := r.Update(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.Seq)
	assert.True(t, snap.Changed)
	assert.Len(t, snap.Hash, 64)
	assert.Equal(t, wantRaw(), r.Raw())

	chart := r.Formatted().(format.ChartOutput)
	assert.Equal(t, []string{"Eggs", "Salad"}, chart.Label)
	assert.Equal(t, []format.Series{
		{Label: "Breakfast", Values: []float64{100, 0}},
		{Label: "Lunch", Values: []float64{0, 80.5}},
	}, chart.Values)
	assert.Same(t, snap, r.Last())
}

func TestUpdate_DefaultsToRawFormatter(t *testing.T) {
	r, err := New(Config{Source: HandleSource(testutil.MealsCollection()), Stages: mealByFood()})
	require.NoError(t, err)

	_, err = r.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wantRaw(), r.Formatted())
}

func TestUpdate_FailureKeepsPreviousSnapshot(t *testing.T) {
	calls := 0
	source := func(context.Context) (records.Handle, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("source offline")
		}
		return testutil.MealsCollection(), nil
	}

	r, err := New(Config{Source: source, Stages: mealByFood(), Formatter: format.ChartRelative{}})
	require.NoError(t, err)

	first, err := r.Update(context.Background())
	require.NoError(t, err)

	_, err = r.Update(context.Background())
	assert.ErrorContains(t, err, "source offline")
	assert.Same(t, first, r.Last())
	assert.Equal(t, wantRaw(), r.Raw())

	third, err := r.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.Seq)
	assert.False(t, third.Changed)
	assert.Equal(t, first.Hash, third.Hash)
}

func TestUpdate_ShapeErrorKeepsPreviousSnapshot(t *testing.T) {
	// One grouping level: a chart cannot be drawn from it.
	stages := []pipeline.Stage{
		pipeline.StringGroup{Field: "meal", Values: compare.WrapStrings("is", []string{"Breakfast"}, true)},
		pipeline.Count{},
	}
	r, err := New(Config{Source: HandleSource(testutil.MealsCollection()), Stages: stages, Formatter: format.Chart{}})
	require.NoError(t, err)

	_, err = r.Update(context.Background())
	require.Error(t, err)
	assert.True(t, format.IsShapeError(err))
	assert.Nil(t, r.Last())
}

func TestUpdate_StepLimit(t *testing.T) {
	r, err := New(Config{Source: HandleSource(testutil.MealsCollection()), Stages: mealByFood()}, WithMaxSteps(3))
	require.NoError(t, err)

	_, err = r.Update(context.Background())
	assert.True(t, pipeline.IsStepsExceededError(err))
}

func TestUpdate_StoreSourceSeesNewRows(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Load(ctx, "meals", testutil.Meals())
	require.NoError(t, err)

	r, err := New(Config{Source: StoreSource(s, "meals"), Stages: mealByFood()})
	require.NoError(t, err)

	first, err := r.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantRaw(), first.Raw)

	_, err = s.Load(ctx, "meals", []records.Record{{"meal": "Lunch", "food": "Salad", "calories": 20}})
	require.NoError(t, err)

	second, err := r.Update(ctx)
	require.NoError(t, err)
	assert.True(t, second.Changed)
	assert.NotEqual(t, first.Hash, second.Hash)
	lunch := second.Raw.(pipeline.Tree)[1].Values.(pipeline.Tree)
	assert.Equal(t, pipeline.Scalar(100.5), lunch[1].Values)
}

func TestUpdate_ConcurrentReaders(t *testing.T) {
	r, err := New(Config{Source: HandleSource(testutil.MealsCollection()), Stages: mealByFood()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := r.Update(context.Background())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = r.Raw()
			_ = r.Formatted()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), r.Last().Seq)
}

func TestDescribe(t *testing.T) {
	r, err := New(Config{Source: HandleSource(testutil.MealsCollection()), Stages: mealByFood()})
	require.NoError(t, err)
	assert.Equal(t, "group(meal: 2 strings) -> group(food: 2 strings) -> sum(calories)", r.Describe())
}
