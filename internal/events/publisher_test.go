package events

import (
	"context"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestShutdown_DrainsQueuedEvents(t *testing.T) {
	stub := &stubWriter{}
	publisher = &Publisher{
		writer:       stub,
		eventChan:    make(chan EntityEvent, 10),
		shutdownChan: make(chan struct{}),
		log:          zap.NewNop(),
	}
	t.Cleanup(func() { publisher = nil })

	// no workers running, so everything published stays buffered
	for i := 0; i < 5; i++ {
		Publish("asset", "created", uint(i+1), 1, 1)
	}

	Shutdown()

	assert.Len(t, stub.messages, 5)
	assert.True(t, stub.closed)
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	stub := &stubWriter{}
	publisher = &Publisher{
		writer:       stub,
		eventChan:    make(chan EntityEvent, 1),
		shutdownChan: make(chan struct{}),
		log:          zap.NewNop(),
	}
	t.Cleanup(func() { publisher = nil })

	Publish("asset", "created", 1, 1, 1)
	Publish("asset", "created", 2, 1, 1) // queue full, dropped

	require.Len(t, publisher.eventChan, 1)
}

func TestPublish_NoOpWhenDisabled(t *testing.T) {
	publisher = nil
	assert.NotPanics(t, func() {
		Publish("asset", "created", 1, 1, 1)
	})
}
