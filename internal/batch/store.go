package batch

import "context"

// Store persists batches as a keyed map plus an append-only event log.
// Create must commit the record and its event atomically, returning
// sentinel.ErrConflict on id collision.
type Store interface {
	Create(ctx context.Context, record Batch) error
	Find(ctx context.Context, batchID string) (Batch, error)
	Exists(ctx context.Context, batchID string) (bool, error)
	Events(ctx context.Context) ([]RegisteredEvent, error)
}
