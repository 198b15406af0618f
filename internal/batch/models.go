package batch

import (
	"time"

	id "pharmledger/pkg/domain"
)

// Batch is one registered drug batch. Immutable once created.
type Batch struct {
	BatchID        string        `json:"batch_id"`
	Name           string        `json:"name"`
	Dosage         string        `json:"dosage"`
	ExpirationDate string        `json:"expiration_date"`
	Description    string        `json:"description"`
	ContentRef     id.ContentRef `json:"content_ref"`
	Manufacturer   id.Account    `json:"manufacturer"`
	RegisteredAt   time.Time     `json:"registered_at"`
}

// RegisteredEvent is the append-only record of one accepted registration. It
// carries the full batch so listing replays events instead of scanning the
// keyed map.
type RegisteredEvent struct {
	Batch Batch `json:"batch"`
}

// RegisterCommand is the validated input for RegisterBatch.
type RegisterCommand struct {
	BatchID        string
	Name           string
	Dosage         string
	ExpirationDate string
	Description    string
	ContentRef     id.ContentRef
}

// Replay rebuilds the keyed map from an event log.
func Replay(events []RegisteredEvent) map[string]Batch {
	byID := make(map[string]Batch, len(events))
	for _, ev := range events {
		byID[ev.Batch.BatchID] = ev.Batch
	}
	return byID
}
