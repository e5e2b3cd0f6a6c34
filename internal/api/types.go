// Package api exposes the engine's diagnostics over HTTP and WebSocket:
// a point-in-time JSON snapshot of the store, pipeline, and diagnostics
// state, a live push feed, and Prometheus metrics. It never reaches into
// the pipeline's evaluation path — everything here reads from
// diagnostics.Monitor and the State Store's read-only stats accessor,
// the engine's designed-for-observers seams (SPEC_FULL.md §2, §5).
// Structure grounded on the teacher's internal/api package
// (Server/Hub/Handlers/Snapshot/Events split).
package api

import (
	"time"

	"featuregraph/internal/diagnostics"
	"featuregraph/internal/store"
	"featuregraph/pkg/types"
)

// DashboardSnapshot is the full point-in-time view served by
// /api/snapshot and pushed to every WebSocket client on connect.
type DashboardSnapshot struct {
	Timestamp      time.Time      `json:"timestamp"`
	Pipeline       string         `json:"pipeline"`
	Store          StoreSnapshot  `json:"store"`
	Nodes          []NodeSnapshot `json:"nodes"`
	AlertThreshold float64        `json:"alert_threshold"`
	Alerting       []types.NodeId `json:"alerting"`
}

// StoreSnapshot is the JSON projection of store.StoreStats.
type StoreSnapshot struct {
	Instruments int `json:"instruments"`
	Series      int `json:"series"`
	Points      int `json:"points"`
}

func storeSnapshotFrom(stats store.StoreStats) StoreSnapshot {
	return StoreSnapshot{
		Instruments: stats.Instruments,
		Series:      stats.Series,
		Points:      stats.Points,
	}
}

// NodeSnapshot is the JSON projection of one node's diagnostics.NodeStats.
// Kept as a slice rather than the map diagnostics.Snapshot.Nodes uses so
// JSON output has a stable, orderable shape for dashboard clients.
type NodeSnapshot struct {
	Node        types.NodeId `json:"node"`
	Evaluated   int          `json:"evaluated"`
	Failed      int          `json:"failed"`
	FailureRate float64      `json:"failure_rate"`
}

func nodeSnapshotsFrom(snap diagnostics.Snapshot) []NodeSnapshot {
	nodes := make([]NodeSnapshot, 0, len(snap.Nodes))
	for _, stats := range snap.Nodes {
		nodes = append(nodes, NodeSnapshot{
			Node:        stats.Node,
			Evaluated:   stats.Evaluated,
			Failed:      stats.Failed,
			FailureRate: stats.FailureRate,
		})
	}
	return nodes
}
