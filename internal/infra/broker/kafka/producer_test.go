package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishesWithHeaders(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		require.Equal(t, "booking.events.v1", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, "b-1", string(key))
		require.Len(t, msg.Headers, 1)
		require.Equal(t, "ce_id", string(msg.Headers[0].Key))
		return nil
	})

	p := NewProducerFrom(mock)
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{"ce_id": "evt-1"}))
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewProducerFrom(mock).Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, mock.Close())
}
