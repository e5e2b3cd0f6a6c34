package api

import "time"

// DashboardEvent is the envelope every message pushed over /ws uses.
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot" is the only kind this engine emits today
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewSnapshotEvent wraps a DashboardSnapshot for broadcast.
func NewSnapshotEvent(snapshot DashboardSnapshot) DashboardEvent {
	return DashboardEvent{
		Type:      "snapshot",
		Timestamp: snapshot.Timestamp,
		Data:      snapshot,
	}
}
