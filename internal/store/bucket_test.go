package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"featuregraph/pkg/types"
)

func TestBucketInsertAssignsMonotonicTieBreakOnRepeatedTimestamp(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	ts := time.Unix(10, 0)

	b.insert(ts, decimal.NewFromInt(1))
	b.insert(ts, decimal.NewFromInt(2))
	b.insert(ts, decimal.NewFromInt(3))

	if len(b.points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(b.points))
	}
	for i := 1; i < len(b.points); i++ {
		if !b.points[i-1].Key.Less(b.points[i].Key) {
			t.Fatalf("keys not strictly increasing at index %d: %+v >= %+v", i, b.points[i-1].Key, b.points[i].Key)
		}
	}
}

func TestBucketLatestReturnsGreatestKeyAtOrBeforeAsOf(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	b.insert(time.Unix(1, 0), decimal.NewFromInt(100))
	b.insert(time.Unix(2, 0), decimal.NewFromInt(200))
	b.insert(time.Unix(3, 0), decimal.NewFromInt(300))

	p, ok := b.latest(time.Unix(2, 0))
	if !ok {
		t.Fatal("latest reported absent")
	}
	if !p.Value.Equal(decimal.NewFromInt(200)) {
		t.Errorf("latest(2) = %v, want 200", p.Value)
	}

	if _, ok := b.latest(time.Unix(0, 0)); ok {
		t.Error("latest before any insertion should report absent")
	}
}

func TestBucketWindowBothBoundsExclusive(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	// Points at t=0 (on the lower bound), t=5 (inside), t=10 (on asOf, the
	// upper bound). Window(10) at asOf=10 must return only t=5.
	b.insert(time.Unix(0, 0), decimal.NewFromInt(1))
	b.insert(time.Unix(5, 0), decimal.NewFromInt(2))
	b.insert(time.Unix(10, 0), decimal.NewFromInt(3))

	got := b.window(time.Unix(10, 0), 10*time.Second)
	if len(got) != 1 {
		t.Fatalf("window returned %d points, want 1: %+v", len(got), got)
	}
	if !got[0].Value.Equal(decimal.NewFromInt(2)) {
		t.Errorf("window point = %v, want 2 (the t=5 entry)", got[0].Value)
	}
}

func TestBucketWindowEmptyWhenNoPointsInRange(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	b.insert(time.Unix(100, 0), decimal.NewFromInt(1))

	got := b.window(time.Unix(10, 0), 5*time.Second)
	if got != nil {
		t.Errorf("window = %+v, want nil", got)
	}
}

func TestBucketPeriodsReturnsNMostRecentStrictlyBeforeAsOf(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	for i := 1; i <= 5; i++ {
		b.insert(time.Unix(int64(i), 0), decimal.NewFromInt(int64(i*10)))
	}

	got := b.periods(time.Unix(4, 0), 2)
	if len(got) != 2 {
		t.Fatalf("periods returned %d points, want 2", len(got))
	}
	if !got[0].Value.Equal(decimal.NewFromInt(20)) || !got[1].Value.Equal(decimal.NewFromInt(30)) {
		t.Errorf("periods = %v, want [20 30] (t=2,3; t=4 excluded since asOf is exclusive)", got)
	}
}

func TestBucketPeriodsClampsWhenFewerPointsThanRequested(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	b.insert(time.Unix(1, 0), decimal.NewFromInt(1))

	got := b.periods(time.Unix(5, 0), 10)
	if len(got) != 1 {
		t.Fatalf("periods returned %d points, want 1", len(got))
	}
}

func TestBucketInsertEvictsOlderThanRetention(t *testing.T) {
	t.Parallel()
	b := newBucket(10 * time.Second)
	b.insert(time.Unix(0, 0), decimal.NewFromInt(1))
	b.insert(time.Unix(5, 0), decimal.NewFromInt(2))
	b.insert(time.Unix(20, 0), decimal.NewFromInt(3)) // cutoff = 10, evicts t=0 and t=5

	if len(b.points) != 1 {
		t.Fatalf("len(points) after eviction = %d, want 1: %+v", len(b.points), b.points)
	}
	if !b.points[0].Value.Equal(decimal.NewFromInt(3)) {
		t.Errorf("surviving point = %v, want 3", b.points[0].Value)
	}
}

func TestBucketZeroRetentionNeverEvicts(t *testing.T) {
	t.Parallel()
	b := newBucket(0)
	for i := 0; i < 100; i++ {
		b.insert(time.Unix(int64(i), 0), decimal.NewFromInt(int64(i)))
	}
	if len(b.points) != 100 {
		t.Errorf("len(points) = %d, want 100 (unbounded retention)", len(b.points))
	}
}

var _ = types.FeatureId("") // keep featuregraph/pkg/types imported for future bucket tests using typed ids
