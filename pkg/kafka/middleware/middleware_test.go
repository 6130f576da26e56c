package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"tripbroker/pkg/kafka"
	"tripbroker/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	m := NewMetrics()
	produce := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("broker down") }

	_ = produce(context.Background(), kafka.Message{}, ok)
	_ = produce(context.Background(), kafka.Message{}, fail)
	_ = consume(context.Background(), kafka.Message{}, ok)
	_ = consume(context.Background(), kafka.Message{}, ok)
	_ = consume(context.Background(), kafka.Message{}, fail)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.MessagesPublished)
	assert.Equal(t, int64(1), snap.MessagesPublishedFailed)
	assert.Equal(t, int64(2), snap.MessagesConsumed)
	assert.Equal(t, int64(1), snap.MessagesConsumedFailed)
}

func TestLoggingMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("handler failed")
	mw := LoggingConsumerMiddleware(logger.Discard())

	err := mw(context.Background(), kafka.Message{Key: "INV-1"}, func(ctx context.Context, msg kafka.Message) error {
		return want
	})
	assert.ErrorIs(t, err, want)

	pmw := LoggingProducerMiddleware(logger.Discard())
	err = pmw(context.Background(), kafka.Message{Key: "INV-1"}, func(ctx context.Context, msg kafka.Message) error {
		return nil
	})
	assert.NoError(t, err)
}
