package transfer

import "context"

// Store persists the transfer log. Append assigns the next dense sequence
// number for the record's batch and commits atomically; ListByBatch returns
// records in sequence order.
type Store interface {
	Append(ctx context.Context, record Record) (Record, error)
	ListByBatch(ctx context.Context, batchID string) ([]Record, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
	Events(ctx context.Context) ([]LoggedEvent, error)
}
