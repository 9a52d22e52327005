package grab

import "github.com/go-gl/mathgl/mgl64"

// EventKind identifies grab lifecycle events.
type EventKind string

const (
	EventGrabStart EventKind = "grab_start"
	EventGrabEnd   EventKind = "grab_end"
	EventThrow     EventKind = "throw"
)

// Event is emitted on grab lifecycle transitions. Delivery is synchronous
// within the tick that caused the transition.
type Event struct {
	Kind       EventKind
	Grabbable  *Grabbable
	Interactor *Interactor

	// Set on EventThrow only.
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// EventQueue is a simple FIFO queue drained once per tick.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
