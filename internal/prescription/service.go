// Package prescription tracks prescriptions from issuance by a doctor to
// fulfillment by a pharmacy.
package prescription

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pharmledger/internal/audit"
	"pharmledger/internal/platform/metrics"
	"pharmledger/internal/roles"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/sentinel"
	"pharmledger/pkg/requestcontext"
)

// BatchDirectory is the slice of the batch registry this service needs:
// prescriptions must reference a registered batch.
type BatchDirectory interface {
	Exists(ctx context.Context, batchID string) (bool, error)
}

// Service owns the prescription ledger.
type Service struct {
	store   Store
	checker roles.Checker
	batches BatchDirectory
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, checker roles.Checker, batches BatchDirectory, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, checker: checker, batches: batches, auditor: auditor, metrics: m, logger: logger}
}

// Issue records a new prescription. Doctor-gated; the referenced batch must
// already be registered.
func (s *Service) Issue(ctx context.Context, caller id.Account, cmd IssueCommand) (Prescription, error) {
	if err := validateIssue(cmd); err != nil {
		return Prescription{}, err
	}
	if err := roles.Require(ctx, s.checker, caller, id.RoleDoctor); err != nil {
		s.metrics.IncPermissionDenied("prescriptions")
		return Prescription{}, err
	}

	known, err := s.batches.Exists(ctx, cmd.BatchID)
	if err != nil {
		return Prescription{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check batch")
	}
	if !known {
		return Prescription{}, dErrors.Newf(dErrors.CodeNotFound, "batch %q not registered", cmd.BatchID)
	}

	start := time.Now()
	record := Prescription{
		PrescriptionID: cmd.PrescriptionID,
		BatchID:        cmd.BatchID,
		Patient:        cmd.Patient,
		ContentRef:     cmd.ContentRef,
		IssuedBy:       caller,
		IssuedAt:       requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Prescription{}, dErrors.Newf(dErrors.CodeAlreadyExists, "prescription %q already issued", cmd.PrescriptionID)
		}
		return Prescription{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue prescription")
	}

	s.metrics.IncPrescriptionsIssued()
	s.metrics.ObserveWrite("issue_prescription", start)
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionPrescriptionIssued,
		Actor:   caller,
		Subject: record.PrescriptionID,
		Ref:     record.ContentRef,
	})
	return record, nil
}

// Fulfill marks a prescription fulfilled. Pharmacy-gated; the transition is
// one-way, a second attempt gets InvalidState no matter who asks.
func (s *Service) Fulfill(ctx context.Context, caller id.Account, prescriptionID string) (Prescription, error) {
	if strings.TrimSpace(prescriptionID) == "" {
		return Prescription{}, dErrors.New(dErrors.CodeValidation, "prescription id is required")
	}
	if err := roles.Require(ctx, s.checker, caller, id.RolePharmacy); err != nil {
		s.metrics.IncPermissionDenied("prescriptions")
		return Prescription{}, err
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	record, err := s.store.Fulfill(ctx, prescriptionID,
		func(p Prescription) error {
			if p.Fulfilled {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(p *Prescription) {
			p.Fulfilled = true
			p.FulfilledBy = caller
			p.FulfilledAt = &now
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return Prescription{}, dErrors.Newf(dErrors.CodeNotFound, "prescription %q not found", prescriptionID)
		case errors.Is(err, sentinel.ErrInvalidState):
			return Prescription{}, dErrors.Newf(dErrors.CodeInvalidState, "prescription %q already fulfilled", prescriptionID)
		}
		return Prescription{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fulfill prescription")
	}

	s.metrics.IncPrescriptionsFulfilled()
	s.metrics.ObserveWrite("fulfill_prescription", start)
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionPrescriptionFulfilled,
		Actor:   caller,
		Subject: record.PrescriptionID,
	})
	return record, nil
}

// Get returns a prescription by id. Pure read.
func (s *Service) Get(ctx context.Context, prescriptionID string) (Prescription, error) {
	record, err := s.store.Find(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Prescription{}, dErrors.Newf(dErrors.CodeNotFound, "prescription %q not found", prescriptionID)
		}
		return Prescription{}, dErrors.Wrap(err, dErrors.CodeInternal, "prescription lookup failed")
	}
	return record, nil
}

// ListUnfulfilled replays the event log: issued events in issue order, minus
// every prescription that has since been fulfilled.
func (s *Service) ListUnfulfilled(ctx context.Context) ([]Prescription, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "prescription listing failed")
	}
	return ReplayUnfulfilled(events), nil
}

func validateIssue(cmd IssueCommand) error {
	switch {
	case strings.TrimSpace(cmd.PrescriptionID) == "":
		return dErrors.New(dErrors.CodeValidation, "prescription id is required")
	case len(cmd.PrescriptionID) > 128:
		return dErrors.New(dErrors.CodeValidation, "prescription id must be 128 characters or less")
	case strings.TrimSpace(cmd.BatchID) == "":
		return dErrors.New(dErrors.CodeValidation, "batch id is required")
	case cmd.Patient.IsZero():
		return dErrors.New(dErrors.CodeValidation, "patient account is required")
	case cmd.ContentRef.IsZero():
		return dErrors.New(dErrors.CodeValidation, "content reference is required")
	}
	return nil
}
