package credential

import (
	"time"

	id "pharmledger/pkg/domain"
)

// Credential is metadata for one issued verifiable credential. The hash is
// caller-supplied, a content hash of the off-chain credential document; the
// registry never stores the document itself.
type Credential struct {
	Hash     string     `json:"hash"`
	Subject  id.Account `json:"subject"`
	Issuer   id.Account `json:"issuer"`
	Schema   string     `json:"schema"`
	IssuedAt time.Time  `json:"issued_at"`
}

// IssuedEvent is one append-only log entry for the credential registry.
type IssuedEvent struct {
	Credential Credential `json:"credential"`
}

// IssueCommand is the validated input for Issue.
type IssueCommand struct {
	Hash    string
	Schema  string
	Subject id.Account
}

// Replay rebuilds the keyed map from an event log.
func Replay(events []IssuedEvent) map[string]Credential {
	byHash := make(map[string]Credential, len(events))
	for _, ev := range events {
		byHash[ev.Credential.Hash] = ev.Credential
	}
	return byHash
}
