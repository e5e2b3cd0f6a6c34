package store

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"featuregraph/pkg/types"
)

// bucket holds one (instrument, feature-id) time series: values ordered by
// CompositeKey, guarded by its own RWMutex so readers/writers of unrelated
// buckets never contend. Grounded on the teacher's per-symbol ring buffer
// (internal/market/book.go) generalized from a fixed ring to an
// age-bounded slice, since the State Store's retention is open-ended
// (spec.md §9 Open Question, resolved in DESIGN.md as bounded-by-age).
type bucket struct {
	mu      sync.RWMutex
	points  []types.FeaturePoint
	nextSeq uint64
	retain  time.Duration // 0 means unbounded
}

func newBucket(retain time.Duration) *bucket {
	return &bucket{retain: retain}
}

// len reports how many points this bucket currently retains.
func (b *bucket) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.points)
}

// insert appends a value at ts, assigning the next tie-breaker for this
// bucket, and evicts points older than the retention window if one is set.
// Points must arrive in non-decreasing event-time order per producer; the
// tie-breaker alone disambiguates same-timestamp insertions.
func (b *bucket) insert(ts types.Timestamp, value decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := types.NewCompositeKey(ts, b.nextSeq)
	b.nextSeq++
	b.points = append(b.points, types.FeaturePoint{Key: key, Value: value})

	if b.retain > 0 {
		cutoff := ts.Add(-b.retain)
		i := sort.Search(len(b.points), func(i int) bool {
			return !b.points[i].Key.At.Before(cutoff)
		})
		if i > 0 {
			b.points = b.points[i:]
		}
	}
}

// latest returns the most recent point with key <= MaxCompositeKey(asOf).
func (b *bucket) latest(asOf types.Timestamp) (types.FeaturePoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bound := types.MaxCompositeKey(asOf)
	i := sort.Search(len(b.points), func(i int) bool {
		return bound.Less(b.points[i].Key)
	})
	if i == 0 {
		return types.FeaturePoint{}, false
	}
	return b.points[i-1], true
}

// window returns all points with key.At strictly in (asOf-d, asOf),
// ascending — both bounds exclusive, per the Window boundary law.
func (b *bucket) window(asOf types.Timestamp, d time.Duration) []types.FeaturePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := asOf.Add(-d)
	lo := sort.Search(len(b.points), func(i int) bool {
		return b.points[i].Key.At.After(start)
	})
	hi := sort.Search(len(b.points), func(i int) bool {
		return !b.points[i].Key.At.Before(asOf)
	})
	if lo >= hi {
		return nil
	}
	out := make([]types.FeaturePoint, hi-lo)
	copy(out, b.points[lo:hi])
	return out
}

// periods returns the n points with the greatest keys strictly less than
// asOf, in ascending order.
func (b *bucket) periods(asOf types.Timestamp, n int) []types.FeaturePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hi := sort.Search(len(b.points), func(i int) bool {
		return !b.points[i].Key.At.Before(asOf)
	})
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	if lo >= hi {
		return nil
	}
	out := make([]types.FeaturePoint, hi-lo)
	copy(out, b.points[lo:hi])
	return out
}
