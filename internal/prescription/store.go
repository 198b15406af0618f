package prescription

import "context"

// Store persists prescriptions as a keyed map plus an append-only event log.
// Create commits the record and its issued event atomically, returning
// sentinel.ErrConflict on id collision. Fulfill runs validate then apply on
// the stored record under one lock (or one transaction), so the one-way
// transition cannot race: an error from validate aborts the write and leaves
// the record and the log untouched.
type Store interface {
	Create(ctx context.Context, record Prescription) error
	Find(ctx context.Context, prescriptionID string) (Prescription, error)
	Fulfill(ctx context.Context, prescriptionID string, validate func(Prescription) error, apply func(*Prescription)) (Prescription, error)
	Events(ctx context.Context) ([]Event, error)
}
