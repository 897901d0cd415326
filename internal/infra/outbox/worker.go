package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "travelbooking/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed outbox records to the broker as CloudEvents.
type Worker struct {
	Store       Store
	Producer    Producer
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// BatchSize caps how many records one wake-up drains.
	BatchSize int

	nudge chan struct{}
}

func NewWorker(store Store, producer Producer) *Worker {
	return &Worker{Store: store, Producer: producer, nudge: make(chan struct{}, 1)}
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.nudge == nil {
		w.nudge = make(chan struct{}, 1)
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.nudge:
		}
		if err := w.drain(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if w.Logger != nil {
				w.Logger.ErrorContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// Flush wakes the relay without waiting for the next tick. It never blocks.
func (w *Worker) Flush(context.Context) error {
	if w.nudge == nil {
		return nil
	}
	select {
	case w.nudge <- struct{}{}:
	default:
	}
	return nil
}

func (w *Worker) drain(ctx context.Context) error {
	for i := 0; i < w.batchSize(); i++ {
		more, err := w.processOnce(ctx)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// processOnce delivers at most one record and reports whether one was claimed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	env, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || env == nil {
		return false, err
	}
	topic := w.topicFor(env.Name)
	payload, headers, err := w.formatPayload(env)
	if err != nil {
		return true, w.fail(ctx, env, err)
	}
	if err := w.Producer.Publish(ctx, topic, env.Aggregate, payload, headers); err != nil {
		return true, w.fail(ctx, env, err)
	}
	return true, w.Store.MarkSent(ctx, env.ID)
}

func (w *Worker) fail(ctx context.Context, env *Envelope, cause error) error {
	if w.Logger != nil {
		w.Logger.WarnContext(ctx, "outbox publish failed", "event_id", env.ID, "event", env.Name, "attempts", env.Attempts+1, "error", cause)
	}
	return w.Store.MarkFailed(ctx, env.ID, w.nextRetry(env.Attempts), cause.Error())
}

func (w *Worker) formatPayload(env *Envelope) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(env.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := CloudEvent{
		SpecVersion:     "1.0",
		ID:              env.ID,
		Type:            env.Name + ".v1",
		Source:          w.source(),
		Subject:         env.Aggregate,
		Time:            env.OccurredAt,
		DataContentType: "application/json",
		Data:            data,
	}
	if trace, ok := env.Headers["traceparent"]; ok {
		evt.TraceParent = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        env.ID,
		"ce_type":      evt.Type,
	}
	for k, v := range env.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// CloudEvent is the structured-mode envelope published to the broker.
type CloudEvent struct {
	SpecVersion     string         `json:"specversion"`
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Source          string         `json:"source"`
	Subject         string         `json:"subject,omitempty"`
	Time            time.Time      `json:"time"`
	DataContentType string         `json:"datacontenttype"`
	TraceParent     string         `json:"traceparent,omitempty"`
	Data            map[string]any `json:"data"`
}

// EventName strips the version suffix from the CloudEvent type.
func (e CloudEvent) EventName() string {
	return strings.TrimSuffix(e.Type, ".v1")
}

// TopicFor maps "booking.confirmed" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://travelbooking"
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

var _ appoutbox.Flusher = (*Worker)(nil)
