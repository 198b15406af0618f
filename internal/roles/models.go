package roles

import (
	"time"

	id "pharmledger/pkg/domain"
)

// GrantedEvent is the append-only record of one accepted role grant. The
// held-roles map is always derivable by replaying these in order.
type GrantedEvent struct {
	Account   id.Account `json:"account"`
	Role      id.Role    `json:"role"`
	GrantedBy id.Account `json:"granted_by"`
	GrantedAt time.Time  `json:"granted_at"`
}

// Replay rebuilds the held-roles map from an event log. Used by stores to
// recover state and by tests to assert replayability.
func Replay(events []GrantedEvent) map[id.Account]map[id.Role]struct{} {
	held := make(map[id.Account]map[id.Role]struct{})
	for _, ev := range events {
		set, ok := held[ev.Account]
		if !ok {
			set = make(map[id.Role]struct{})
			held[ev.Account] = set
		}
		set[ev.Role] = struct{}{}
	}
	return held
}
