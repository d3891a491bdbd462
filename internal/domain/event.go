package domain

import "time"

// EventLevel classifies a status event
type EventLevel string

const (
	EventSuccess EventLevel = "success"
	EventError   EventLevel = "error"
)

// Event is a user-facing status notification. It is a side channel for the
// presentation layer; nothing in the core reads it back.
type Event struct {
	ID          string     `json:"id,omitempty"`
	SessionID   string     `json:"session_id"`
	Level       EventLevel `json:"level"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EventFilter narrows an event listing
type EventFilter struct {
	SessionID string
	Level     EventLevel
	Limit     int
}
