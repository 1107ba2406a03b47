// Package queue defines message payloads exchanged over the message broker.
package queue

// SlotEventsQueue is the durable queue carrying booking events.
const SlotEventsQueue = "slot.events"

// Event types.
const (
	EventSlotBooked   = "slot.booked"
	EventSlotUnbooked = "slot.unbooked"
)

// SlotEvent is published after a booking or release has been committed.
// It carries enough detail for consumers to log or notify without querying
// the primary database.
type SlotEvent struct {
	Type       string `json:"type"`
	SlotID     uint64 `json:"slot_id"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	Category   string `json:"category"`
	Title      string `json:"title"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	OccurredAt string `json:"occurred_at"`
}
