package store

import "github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"

// EventType classifies a store change notification.
type EventType string

const (
	EventEnqueued      EventType = "enqueued"
	EventStatusChanged EventType = "status_changed"
	EventProgress      EventType = "progress"
	EventDeleted       EventType = "deleted"
)

// Event is pushed to subscribers after a mutation has been durably
// committed. It replaces the live-query mechanism of the original capture
// app: the scheduler and any UI listen on a channel instead of re-querying.
type Event struct {
	Type    EventType
	ItemID  string
	Status  models.SyncStatus
	Percent int
}
