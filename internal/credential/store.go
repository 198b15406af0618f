package credential

import "context"

// Store persists credentials as a keyed map plus an append-only event log.
// Create must commit the record and its event atomically, returning
// sentinel.ErrConflict on hash collision.
type Store interface {
	Create(ctx context.Context, record Credential) error
	Find(ctx context.Context, hash string) (Credential, error)
	Exists(ctx context.Context, hash string) (bool, error)
	Events(ctx context.Context) ([]IssuedEvent, error)
}
