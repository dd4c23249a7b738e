package models

import "time"

// Engine event types published to the realtime layer.
const (
	EventQueuePositionChanged = "queue-position-changed"
	EventWaitTimeUpdated      = "wait-time-updated"
	EventSlotReserved         = "slot-reserved"
	EventSlotReleased         = "slot-released"
)

// EngineEvent is the envelope pushed to the external pub/sub layer on every
// queue or reservation change. Clients subscribe per shop channel.
type EngineEvent struct {
	Type     string    `json:"type"`
	ShopID   string    `json:"shopId"`
	EntityID string    `json:"entityId"` // ticket or booking id
	// Value carries the new state: position, wait minutes, or booking status.
	Value     any       `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
