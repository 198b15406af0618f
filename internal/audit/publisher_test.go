package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProducer struct {
	mu       sync.Mutex
	payloads [][]byte
	keys     []string
}

func (p *capturingProducer) Produce(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingProducer) snapshot() ([]string, [][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.keys...), append([][]byte{}, p.payloads...)
}

func TestPublisherWorker_DeliversEvents(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pub := NewPublisher(8, logger)
	producer := &capturingProducer{}
	worker := NewWorker(producer, pub.Inbox(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub.Emit(ctx, Event{Action: ActionBatchRegistered, Subject: "B1"})
	pub.Emit(ctx, Event{Action: ActionTransferLogged, Subject: "B1"})

	require.Eventually(t, func() bool {
		keys, _ := producer.snapshot()
		return len(keys) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	keys, payloads := producer.snapshot()
	assert.Equal(t, []string{"B1", "B1"}, keys)

	var decoded Event
	require.NoError(t, json.Unmarshal(payloads[0], &decoded))
	assert.Equal(t, ActionBatchRegistered, decoded.Action)
	assert.NotEmpty(t, decoded.ID)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestPublisher_DropsWhenInboxFull(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pub := NewPublisher(1, logger)
	ctx := context.Background()

	// No worker draining: second emit must not block.
	pub.Emit(ctx, Event{Action: ActionRoleGranted, Subject: "0xabc"})

	finished := make(chan struct{})
	go func() {
		pub.Emit(ctx, Event{Action: ActionRoleGranted, Subject: "0xdef"})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
	assert.Len(t, pub.Inbox(), 1)
}
