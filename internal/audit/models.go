package audit

import (
	"time"

	id "pharmledger/pkg/domain"
)

// Action names an accepted ledger mutation.
type Action string

const (
	ActionRoleGranted           Action = "role_granted"
	ActionBatchRegistered       Action = "batch_registered"
	ActionPrescriptionIssued    Action = "prescription_issued"
	ActionPrescriptionFulfilled Action = "prescription_fulfilled"
	ActionTransferLogged        Action = "transfer_logged"
	ActionCredentialIssued      Action = "credential_issued"
)

// Event is emitted after a registry commits a mutation. It mirrors what the
// off-chain consumer used to read from contract events: who did what to which
// record, and the content reference attached to it.
//
// Audit events are observability, not ledger state: each registry's own event
// log is the replay source of truth, so publishing here is fail-open.
type Event struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Actor     id.Account     `json:"actor"`
	Subject   string         `json:"subject"`
	Ref       id.ContentRef  `json:"ref,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}
