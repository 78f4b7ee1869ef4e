package allocator_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/retailops/erpsync/internal/allocator"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitSplit(t *testing.T) {
	tests := map[string]struct {
		total  int
		shares map[string]int
		want   map[string]int
	}{
		"proportional split": {
			total:  100,
			shares: map[string]int{"locA": 70, "locB": 30},
			want:   map[string]int{"locA": 70, "locB": 30},
		},
		"remainder goes to smallest share": {
			total:  10,
			shares: map[string]int{"locA": 1, "locB": 1, "locC": 1},
			want:   map[string]int{"locA": 3, "locB": 3, "locC": 4},
		},
		"zero history location excluded": {
			total:  10,
			shares: map[string]int{"locA": 5, "locB": 0},
			want:   map[string]int{"locA": 10},
		},
		"no history anywhere uses the sentinel": {
			total:  25,
			shares: map[string]int{},
			want:   map[string]int{allocator.LocationUnassigned: 25},
		},
		"zero total": {
			total:  0,
			shares: map[string]int{"locA": 3, "locB": 1},
			want:   map[string]int{"locA": 0, "locB": 0},
		},
		"single location absorbs everything": {
			total:  7,
			shares: map[string]int{"locA": 123},
			want:   map[string]int{"locA": 7},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := allocator.Split(tt.total, tt.shares)

			assert.Equal(t, tt.want, got, "should split deterministically")
			assert.Equal(t, tt.total, lo.Sum(lo.Values(got)), "values must sum to the input total exactly")
		})
	}
}

func TestUnitSplitSumInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for run := 0; run < 200; run++ {
		total := rnd.Intn(10000)
		shares := map[string]int{}
		for ix := 0; ix < rnd.Intn(8); ix++ {
			shares[string(rune('a'+ix))] = rnd.Intn(500)
		}

		got := allocator.Split(total, shares)

		require.Equal(t, total, lo.Sum(lo.Values(got)),
			"no quantity may be created or destroyed by rounding (total=%d shares=%v)", total, shares)
	}
}

func TestUnitAllocate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{
		quantities: map[string]int{"locA": 70, "locB": 30},
	}

	alc := allocator.NewAllocator(history,
		allocator.WithWindow(90*24*time.Hour),
		allocator.WithClock(fakeClock{now: &now}),
	)

	allocation, err := alc.Allocate(context.TODO(), "prod-0001", 100)

	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, "prod-0001", allocation.ProductExternalID, "should carry the product id")
	assert.Equal(t, map[string]int{"locA": 70, "locB": 30}, allocation.Quantities, "should split by history share")
	assert.Equal(t, now.Add(-90*24*time.Hour), history.since, "should query the trailing window")
}

func TestUnitAllocateNoHistory(t *testing.T) {
	alc := allocator.NewAllocator(&fakeHistory{quantities: map[string]int{}})

	allocation, err := alc.Allocate(context.TODO(), "prod-0002", 40)

	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, map[string]int{allocator.LocationUnassigned: 40}, allocation.Quantities,
		"should park the whole quantity on the sentinel instead of guessing")
}

type fakeHistory struct {
	quantities map[string]int
	since      time.Time
}

func (h *fakeHistory) QuantityByLocation(_ context.Context, _ string, since time.Time) (map[string]int, error) {
	h.since = since
	return h.quantities, nil
}

type fakeClock struct {
	now *time.Time
}

func (c fakeClock) Now() *time.Time {
	return c.now
}
