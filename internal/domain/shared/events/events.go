package events

import "time"

// DomainEvent is a fact recorded by an aggregate during a transition.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder collects events until the owning unit of work drains them into the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Names lists pending event names in recording order.
func (r *EventRecorder) Names() []string {
	names := make([]string, 0, len(r.pending))
	for _, evt := range r.pending {
		names = append(names, evt.EventName())
	}
	return names
}

// Recorder is implemented by aggregates embedding EventRecorder.
type Recorder interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}
