package api

import (
	"time"

	"featuregraph/internal/diagnostics"
	"featuregraph/internal/store"
)

// SnapshotProvider is satisfied directly by *diagnostics.Monitor.
type SnapshotProvider interface {
	Snapshot() diagnostics.Snapshot
}

// StoreStatsProvider is satisfied directly by *store.Store — the
// dashboard's only other observation seam besides diagnostics.Monitor.
type StoreStatsProvider interface {
	Stats() store.StoreStats
}

// BuildSnapshot assembles the dashboard-facing view from the current
// store, pipeline, and diagnostics state.
func BuildSnapshot(pipelineName string, provider SnapshotProvider, storeProvider StoreStatsProvider) DashboardSnapshot {
	snap := provider.Snapshot()
	return DashboardSnapshot{
		Timestamp:      time.Now().UTC(),
		Pipeline:       pipelineName,
		Store:          storeSnapshotFrom(storeProvider.Stats()),
		Nodes:          nodeSnapshotsFrom(snap),
		AlertThreshold: snap.AlertThreshold,
		Alerting:       snap.Alerting,
	}
}
