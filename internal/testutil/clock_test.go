package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock_StaysFrozen(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(now)

	assert.Equal(t, now, clock.Now())
	assert.Equal(t, now, clock.Now())
}

func TestFixedClock_SetAndAdvance(t *testing.T) {
	clock := ClockAt("2024-03-10")
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), clock.Now())

	got := clock.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, got, clock.Now())

	clock.Set(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2020, clock.Now().Year())
}

func TestClockAt_PanicsOnBadDate(t *testing.T) {
	assert.Panics(t, func() { ClockAt("10/03/2024") })
}

func TestSequenceIDs_Sequence(t *testing.T) {
	ids := NewSequenceIDs("n")
	assert.Equal(t, "n-1", ids.Generate())
	assert.Equal(t, "n-2", ids.Generate())

	ids.Reset()
	assert.Equal(t, "n-1", ids.Generate())

	assert.Equal(t, "id-1", NewSequenceIDs("").Generate())
}

func TestSequenceIDs_ThreadSafe(t *testing.T) {
	ids := NewSequenceIDs("")
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := ids.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.True(t, seen["id-1000"])
}

func TestMeals_FreshCopies(t *testing.T) {
	a := Meals()
	a[0]["food"] = "changed"

	b := Meals()
	assert.Equal(t, "Eggs", b[0]["food"])
	assert.Equal(t, 5, MealsCollection().Len())
}
