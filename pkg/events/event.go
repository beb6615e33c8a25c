package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "REFRESH_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by publishers and rebuilt by
// subscribers from the wire payload.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Refresh lifecycle event types relayed to the progress websocket.
const (
	TypeRefreshStarted   = "REFRESH_STARTED"
	TypeRefreshCompleted = "REFRESH_COMPLETED"
	TypeRefreshFailed    = "REFRESH_FAILED"
	TypeDocumentIndexed  = "DOCUMENT_INDEXED"
	TypeDocumentRemoved  = "DOCUMENT_REMOVED"
)

func NewRefreshStarted(total int) Event {
	return BaseEvent{
		Type:       TypeRefreshStarted,
		Data:       map[string]interface{}{"total": total},
		OccurredAt: time.Now(),
	}
}

func NewRefreshCompleted(message string, success, skipped, deleted int64) Event {
	return BaseEvent{
		Type: TypeRefreshCompleted,
		Data: map[string]interface{}{
			"message": message,
			"success": success,
			"skipped": skipped,
			"deleted": deleted,
		},
		OccurredAt: time.Now(),
	}
}

func NewRefreshFailed(message string) Event {
	return BaseEvent{
		Type:       TypeRefreshFailed,
		Data:       map[string]interface{}{"message": message},
		OccurredAt: time.Now(),
	}
}

func NewDocumentIndexed(sourceId, title string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeDocumentIndexed,
		Data: map[string]interface{}{
			"source_id": sourceId,
			"title":     title,
			"chunks":    chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentRemoved(sourceId string) Event {
	return BaseEvent{
		Type:       TypeDocumentRemoved,
		Data:       map[string]interface{}{"source_id": sourceId},
		OccurredAt: time.Now(),
	}
}
