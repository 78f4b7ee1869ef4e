package allocator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/retailops/erpsync/internal/platform/models"
)

//go:generate mockery --name SalesHistory --filename sales_history.go

// LocationUnassigned is the sentinel bucket used when no location has any
// sales history for the product. The quantity is parked there instead of
// being guessed onto a physical location.
const LocationUnassigned = "unassigned"

// DefaultWindow is the trailing sales window used to derive location shares.
const DefaultWindow = 90 * 24 * time.Hour

// SalesHistory provides recorded sales quantity per location.
type SalesHistory interface {
	// QuantityByLocation returns sold quantity per location for the product
	// since the given time. Locations without sales are absent from the map.
	QuantityByLocation(ctx context.Context, productExternalID string, since time.Time) (map[string]int, error)
}

// Clock provides times.
type Clock interface {
	// Now returns current UTC time.
	Now() *time.Time
}

// Option is custom configuration of Allocator.
type Option func(a *Allocator)

// Allocator derives a per-location stock split from historical sales share
// when the source carries only an undistributed total.
type Allocator struct {
	history SalesHistory
	window  time.Duration
	clock   Clock
}

// NewAllocator returns new Allocator.
func NewAllocator(history SalesHistory, ops ...Option) *Allocator {
	alc := &Allocator{
		history: history,
		window:  DefaultWindow,
		clock:   systemClock{},
	}

	for _, op := range ops {
		op(alc)
	}

	return alc
}

// Allocate splits total across locations proportionally to their sales share
// in the trailing window. Locations with no history are excluded; with no
// history anywhere the whole total lands on LocationUnassigned.
func (a *Allocator) Allocate(ctx context.Context, productExternalID string, total int) (models.Allocation, error) {
	since := a.clock.Now().Add(-a.window)

	shares, err := a.history.QuantityByLocation(ctx, productExternalID, since)
	if err != nil {
		return models.Allocation{}, fmt.Errorf("can't read sales history for %q: %w", productExternalID, err)
	}

	return models.Allocation{
		ProductExternalID: productExternalID,
		Quantities:        Split(total, shares),
	}, nil
}

// Split distributes total across the share buckets. Every location except the
// smallest share gets floor(total * share); the smallest absorbs the rounding
// remainder, which keeps the error off the best-selling location. The values
// always sum to total exactly.
func Split(total int, shares map[string]int) map[string]int {
	type bucket struct {
		location string
		share    int
	}

	buckets := make([]bucket, 0, len(shares))
	sumShares := 0
	for location, share := range shares {
		if share <= 0 {
			continue
		}
		buckets = append(buckets, bucket{location: location, share: share})
		sumShares += share
	}

	if len(buckets) == 0 {
		return map[string]int{LocationUnassigned: total}
	}

	// Descending by share, ties broken by location id so the split is
	// deterministic across runs.
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].share != buckets[j].share {
			return buckets[i].share > buckets[j].share
		}
		return buckets[i].location < buckets[j].location
	})

	quantities := make(map[string]int, len(buckets))
	allocated := 0
	for ix := 0; ix < len(buckets)-1; ix++ {
		quantity := total * buckets[ix].share / sumShares
		quantities[buckets[ix].location] = quantity
		allocated += quantity
	}
	quantities[buckets[len(buckets)-1].location] = total - allocated

	return quantities
}

// WithWindow sets a custom trailing history window.
func WithWindow(window time.Duration) Option {
	return func(a *Allocator) {
		a.window = window
	}
}

// WithClock sets Allocator's custom Clock.
func WithClock(c Clock) Option {
	return func(a *Allocator) {
		a.clock = c
	}
}

type systemClock struct{}

// Now returns current time.
func (c systemClock) Now() *time.Time {
	t := time.Now().UTC()
	return &t
}
