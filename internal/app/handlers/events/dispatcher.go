package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Event is a delivered domain event as read back from the broker.
type Event struct {
	ID         string
	Name       string
	Subject    string
	OccurredAt time.Time
	Data       json.RawMessage
}

type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Inbox deduplicates deliveries per consumer.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

var ErrEventIDRequired = errors.New("events: event id required")

// Dispatcher routes each event to the handlers subscribed to its name, at most once per event id.
type Dispatcher struct {
	Inbox  Inbox
	Logger *slog.Logger

	routes map[string][]Handler
}

func NewDispatcher(inbox Inbox, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{Inbox: inbox, Logger: logger, routes: make(map[string][]Handler)}
}

func (d *Dispatcher) Subscribe(name string, h Handler) {
	if d.routes == nil {
		d.routes = make(map[string][]Handler)
	}
	d.routes[name] = append(d.routes[name], h)
}

// Names lists every subscribed event name.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.routes))
	for name := range d.routes {
		out = append(out, name)
	}
	return out
}

// Dispatch runs the subscribed handlers. A failed event is forgotten by the inbox so redelivery retries it.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) error {
	handlers := d.routes[evt.Name]
	if len(handlers) == 0 {
		return nil
	}
	if evt.ID == "" {
		return ErrEventIDRequired
	}
	if d.Inbox != nil {
		seen, err := d.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			if d.Logger != nil {
				d.Logger.DebugContext(ctx, "duplicate event skipped", "event_id", evt.ID, "event", evt.Name)
			}
			return nil
		}
	}
	var errs []error
	for _, h := range handlers {
		if err := h.Handle(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if d.Logger != nil {
		d.Logger.WarnContext(ctx, "event handling failed", "event_id", evt.ID, "event", evt.Name, "error", err)
	}
	if d.Inbox != nil {
		if forgetErr := d.Inbox.Forget(ctx, evt.ID); forgetErr != nil {
			return errors.Join(err, forgetErr)
		}
	}
	return err
}
