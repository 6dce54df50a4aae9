package events

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Application state
	StateChanged EventType = "state.changed"

	// Live detection
	LiveStatusChanged EventType = "live.status.changed"
	LiveComponents    EventType = "live.components"
)

// Event represents a generic event in the system
type Event[T any] struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
}

// EventFilter decides whether a subscriber receives an event.
type EventFilter[T any] func(Event[T]) bool

// PublishOption defines options for publishing events
type PublishOption func(*PublishOptions)

// PublishOptions contains options for publishing events
type PublishOptions struct {
	SessionID string
}

// WithSessionID sets the session ID for the event
func WithSessionID(sessionID string) PublishOption {
	return func(opts *PublishOptions) {
		opts.SessionID = sessionID
	}
}

// FilterByType only passes events of the given types.
func FilterByType[T any](types ...EventType) EventFilter[T] {
	return func(e Event[T]) bool {
		for _, t := range types {
			if e.Type == t {
				return true
			}
		}
		return false
	}
}

// FilterBySession only passes events published for sessionID.
func FilterBySession[T any](sessionID string) EventFilter[T] {
	return func(e Event[T]) bool {
		return e.SessionID == sessionID
	}
}
