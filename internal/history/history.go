package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventLaunch EventType = "launch"
	EventStop   EventType = "stop"
)

// Event represents a worker lifecycle event exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for lifecycle events (analytics/audit systems).
// Implementations must be safe for concurrent use. Delivery is best-effort;
// the supervisor ignores send errors.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
