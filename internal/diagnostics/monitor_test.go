package diagnostics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"featuregraph/internal/config"
)

func testMonitor(cfg config.DiagnosticsConfig) *Monitor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMonitor(cfg, logger)
}

func TestSnapshotComputesFailureRatePerNode(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{})

	m.recordEvaluation(evaluationEvent{node: "sma_20", at: time.Now()})
	m.recordEvaluation(evaluationEvent{node: "sma_20", at: time.Now()})
	m.recordEvaluation(evaluationEvent{node: "sma_20", at: time.Now()})
	m.recordEvaluation(evaluationEvent{node: "sma_20", at: time.Now()})
	m.recordFailure(failureEvent{node: "sma_20", kind: DataInsufficient, at: time.Now()})

	snap := m.Snapshot()
	stats, ok := snap.Nodes["sma_20"]
	if !ok {
		t.Fatal("expected sma_20 in snapshot")
	}
	if stats.Evaluated != 4 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want Evaluated=4 Failed=1", stats)
	}
	if stats.FailureRate != 0.25 {
		t.Errorf("FailureRate = %v, want 0.25", stats.FailureRate)
	}
}

func TestSnapshotNodeWithNoFailuresHasZeroRate(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{})
	m.recordEvaluation(evaluationEvent{node: "ema_20", at: time.Now()})

	snap := m.Snapshot()
	if snap.Nodes["ema_20"].FailureRate != 0 {
		t.Errorf("FailureRate = %v, want 0", snap.Nodes["ema_20"].FailureRate)
	}
}

func TestSnapshotAlertingListsNodesOverThreshold(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{AlertThreshold: 0.5})

	for i := 0; i < 4; i++ {
		m.recordEvaluation(evaluationEvent{node: "bad_node", at: time.Now()})
	}
	for i := 0; i < 3; i++ {
		m.recordFailure(failureEvent{node: "bad_node", kind: NumericError, at: time.Now()})
	}
	m.recordEvaluation(evaluationEvent{node: "good_node", at: time.Now()})

	snap := m.Snapshot()
	if len(snap.Alerting) != 1 || snap.Alerting[0] != "bad_node" {
		t.Fatalf("Alerting = %v, want [bad_node]", snap.Alerting)
	}
}

func TestSnapshotAlertingEmptyWhenThresholdDisabled(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{AlertThreshold: 0})

	for i := 0; i < 10; i++ {
		m.recordEvaluation(evaluationEvent{node: "always_fails", at: time.Now()})
		m.recordFailure(failureEvent{node: "always_fails", kind: NumericError, at: time.Now()})
	}

	snap := m.Snapshot()
	if len(snap.Alerting) != 0 {
		t.Errorf("Alerting = %v, want empty when AlertThreshold <= 0", snap.Alerting)
	}
}

func TestEvictDropsObservationsOlderThanWindow(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{})

	old := time.Now().Add(-time.Hour)
	m.recordEvaluation(evaluationEvent{node: "n1", at: old})
	m.recordFailure(failureEvent{node: "n1", kind: DataInsufficient, at: old})
	m.recordEvaluation(evaluationEvent{node: "n1", at: time.Now()})

	m.evict(time.Minute)

	snap := m.Snapshot()
	stats := snap.Nodes["n1"]
	if stats.Evaluated != 1 || stats.Failed != 0 {
		t.Fatalf("stats after evict = %+v, want Evaluated=1 Failed=0", stats)
	}
}

func TestRecordEvaluationAndFailureViaPublicAPIThroughRun(t *testing.T) {
	t.Parallel()
	m := testMonitor(config.DiagnosticsConfig{})

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.RecordEvaluation("sma_20")
	m.RecordFailure("sma_20", NumericError, "nan result")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := m.Snapshot()
		if snap.Nodes["sma_20"].Evaluated == 1 && snap.Nodes["sma_20"].Failed == 1 {
			cancel()
			<-done
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("observations recorded via the public API never reached the snapshot")
}
