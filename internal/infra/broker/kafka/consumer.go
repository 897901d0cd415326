package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	appevents "travelbooking/internal/app/handlers/events"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ErrUndecodable marks messages no retry can fix. They are committed and skipped.
var ErrUndecodable = errors.New("kafka: undecodable message")

// rejoinDelay spaces out group sessions after a handler failure ends one.
const rejoinDelay = time.Second

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rejoinDelay):
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim stops at the first message the handler fails on. The offset stays uncommitted,
// so the next session starts from that message again.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		err := h.handler.Handle(sess.Context(), message)
		switch {
		case err == nil:
		case errors.Is(err, ErrUndecodable):
			h.warn(sess.Context(), "kafka message skipped", message, err)
		default:
			h.warn(sess.Context(), "kafka message not handled", message, err)
			return fmt.Errorf("kafka: %s/%d@%d: %w", message.Topic, message.Partition, message.Offset, err)
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

func (h consumerGroupHandler) warn(ctx context.Context, msg string, message *sarama.ConsumerMessage, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, msg,
		"topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
}

// cloudEvent mirrors the structured envelope written by the outbox relay.
type cloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Subject     string          `json:"subject"`
	Time        time.Time       `json:"time"`
	Data        json.RawMessage `json:"data"`
}

// DecodeEvent reads a structured CloudEvent message into a dispatchable event.
func DecodeEvent(msg *sarama.ConsumerMessage) (appevents.Event, error) {
	if msg == nil || len(msg.Value) == 0 {
		return appevents.Event{}, errors.New("kafka: empty message")
	}
	var ce cloudEvent
	if err := json.Unmarshal(msg.Value, &ce); err != nil {
		return appevents.Event{}, fmt.Errorf("kafka: decode cloudevent: %w", err)
	}
	if ce.ID == "" {
		ce.ID = header(msg, "ce_id")
	}
	if ce.Type == "" {
		ce.Type = header(msg, "ce_type")
	}
	if ce.Type == "" {
		return appevents.Event{}, errors.New("kafka: cloudevent type missing")
	}
	return appevents.Event{
		ID:         ce.ID,
		Name:       strings.TrimSuffix(ce.Type, ".v1"),
		Subject:    ce.Subject,
		OccurredAt: ce.Time,
		Data:       ce.Data,
	}, nil
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

// Dispatching feeds decoded events to the application dispatcher.
type Dispatching struct {
	Dispatcher *appevents.Dispatcher
}

func (d Dispatching) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, err := DecodeEvent(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	return d.Dispatcher.Dispatch(ctx, evt)
}

var _ MessageHandler = Dispatching{}
