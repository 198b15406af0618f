package roles

import (
	"context"

	id "pharmledger/pkg/domain"
)

// Store persists role grants as a keyed set plus an append-only event log.
// Implementations must commit the set mutation and the event append together.
type Store interface {
	// Grant records a role grant. Returns false with a nil error when the
	// role was already held: re-granting is a documented no-op and must not
	// append an event.
	Grant(ctx context.Context, event GrantedEvent) (bool, error)
	Has(ctx context.Context, account id.Account, role id.Role) (bool, error)
	List(ctx context.Context, account id.Account) ([]id.Role, error)
	Events(ctx context.Context) ([]GrantedEvent, error)
}
