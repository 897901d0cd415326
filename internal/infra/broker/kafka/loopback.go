package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
)

// Loopback hands published records straight to a consumer-side handler. It stands in
// for a broker when none is configured, so events still reach local subscribers.
type Loopback struct {
	Handler MessageHandler
	Now     func() time.Time
}

func (l Loopback) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ConsumerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     payload,
		Timestamp: l.now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, &sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return l.Handler.Handle(ctx, msg)
}

func (l Loopback) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
