package transfer

import (
	"time"

	id "pharmledger/pkg/domain"
)

// Record is one custody transfer of a batch. Records are append-only and
// never amended; Sequence is dense per batch, starting at 0.
type Record struct {
	BatchID    string        `json:"batch_id"`
	Sequence   int           `json:"sequence"`
	From       id.Account    `json:"from"`
	To         id.Account    `json:"to"`
	ContentRef id.ContentRef `json:"content_ref"`
	LoggedAt   time.Time     `json:"logged_at"`
}

// LoggedEvent is one append-only log entry. For transfers the log is the
// state, the event simply carries the record.
type LoggedEvent struct {
	Record Record `json:"record"`
}

// LogCommand is the validated input for LogTransfer. From is the caller and
// Sequence is assigned by the store.
type LogCommand struct {
	BatchID    string
	To         id.Account
	ContentRef id.ContentRef
}

// Replay rebuilds the per-batch histories from an event log.
func Replay(events []LoggedEvent) map[string][]Record {
	byBatch := make(map[string][]Record)
	for _, ev := range events {
		byBatch[ev.Record.BatchID] = append(byBatch[ev.Record.BatchID], ev.Record)
	}
	return byBatch
}
