package types

import "time"

// Timestamp is a monotonically non-decreasing point in event time, wall
// clock (UTC) semantics. Sub-millisecond resolution comes for free from
// time.Time; two distinct events may legitimately share a Timestamp.
type Timestamp = time.Time

// CompositeKey totally orders entries within one (instrument, feature-id)
// or (instrument) bucket: (timestamp, tie-breaker). The tie-breaker is
// assigned at insertion time, strictly increasing per bucket, so that two
// insertions at the same timestamp never collide.
//
// Grounded on the commented-out CompositeKey sketch in
// original_source/arkin/src/pipeline.rs (new/new_max/increment) — the only
// concrete design left for this type in the original source.
type CompositeKey struct {
	At       Timestamp
	TieBreak uint64
}

// NewCompositeKey builds the key for a fresh insertion at ts; seq must be
// the next tie-breaker value for the owning bucket (see bucket.go).
func NewCompositeKey(ts Timestamp, seq uint64) CompositeKey {
	return CompositeKey{At: ts, TieBreak: seq}
}

// MaxCompositeKey returns the greatest possible key at ts — used as an
// inclusive upper bound for Latest queries so that every entry sharing ts
// is considered. Periods queries do not use it: they exclude every entry
// at ts.
func MaxCompositeKey(ts Timestamp) CompositeKey {
	return CompositeKey{At: ts, TieBreak: ^uint64(0)}
}

// Less reports whether k sorts strictly before other.
func (k CompositeKey) Less(other CompositeKey) bool {
	if k.At.Equal(other.At) {
		return k.TieBreak < other.TieBreak
	}
	return k.At.Before(other.At)
}

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater than
// other — convenient for binary search.
func (k CompositeKey) Compare(other CompositeKey) int {
	switch {
	case k.Less(other):
		return -1
	case other.Less(k):
		return 1
	default:
		return 0
	}
}
