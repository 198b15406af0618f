package prescription

import (
	"time"

	id "pharmledger/pkg/domain"
)

// Prescription is one issued prescription. It mutates exactly once, when a
// pharmacy fulfills it; the transition is one-way and never re-enterable.
type Prescription struct {
	PrescriptionID string        `json:"prescription_id"`
	BatchID        string        `json:"batch_id"`
	Patient        id.Account    `json:"patient"`
	ContentRef     id.ContentRef `json:"content_ref"`
	IssuedBy       id.Account    `json:"issued_by"`
	IssuedAt       time.Time     `json:"issued_at"`
	Fulfilled      bool          `json:"fulfilled"`
	FulfilledBy    id.Account    `json:"fulfilled_by,omitempty"`
	FulfilledAt    *time.Time    `json:"fulfilled_at,omitempty"`
}

// EventType tags entries in the prescription event log.
type EventType string

const (
	EventIssued    EventType = "prescription_issued"
	EventFulfilled EventType = "prescription_fulfilled"
)

// Event is one append-only log entry carrying the prescription snapshot taken
// when the event committed.
type Event struct {
	Type         EventType    `json:"type"`
	Prescription Prescription `json:"prescription"`
}

// IssueCommand is the validated input for Issue.
type IssueCommand struct {
	PrescriptionID string
	BatchID        string
	Patient        id.Account
	ContentRef     id.ContentRef
}

// Replay rebuilds the keyed map from an event log.
func Replay(events []Event) map[string]Prescription {
	byID := make(map[string]Prescription, len(events))
	for _, ev := range events {
		byID[ev.Prescription.PrescriptionID] = ev.Prescription
	}
	return byID
}

// ReplayUnfulfilled reproduces the pending-prescriptions view: issued events
// in issue order, minus every id that later received a fulfillment event.
func ReplayUnfulfilled(events []Event) []Prescription {
	fulfilled := make(map[string]struct{})
	for _, ev := range events {
		if ev.Type == EventFulfilled {
			fulfilled[ev.Prescription.PrescriptionID] = struct{}{}
		}
	}
	var pending []Prescription
	for _, ev := range events {
		if ev.Type != EventIssued {
			continue
		}
		if _, done := fulfilled[ev.Prescription.PrescriptionID]; !done {
			pending = append(pending, ev.Prescription)
		}
	}
	return pending
}
