package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pharmledger/pkg/requestcontext"
)

// Publisher hands audit events to a bounded inbox consumed by the Worker.
// Emit never blocks the ledger write path: if the inbox is full the event is
// dropped with a warning (fail-open, operations category).
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit stamps and enqueues an audit event.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Inbox exposes the consuming side for the Worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Worker consumes audit events from the publisher inbox and hands them to a
// producer (Kafka in production, an in-memory sink in tests).
type Worker struct {
	producer Producer
	inbox    <-chan Event
	logger   *slog.Logger
}

// Producer delivers a serialized audit event keyed by subject.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

func NewWorker(producer Producer, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{producer: producer, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled, then flushes what remains with
// a short grace period.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	payload, err := marshalEvent(event)
	if err != nil {
		w.logger.Error("marshal audit event", "error", err, "action", event.Action)
		return
	}
	if err := w.producer.Produce(ctx, event.Subject, payload); err != nil {
		w.logger.Error("publish audit event",
			"error", err,
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}
