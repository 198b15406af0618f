// Package batch records drug batches, write-gated to the Manufacturer role.
package batch

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

// expirationLayout is the date format batches carry, e.g. "2026-01-01".
const expirationLayout = "2006-01-02"

// Service owns the batch registry.
type Service struct {
	store   Store
	checker roles.Checker
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, checker roles.Checker, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, checker: checker, auditor: auditor, metrics: m, logger: logger}
}

// Register records a new batch. Manufacturer-gated; the batch is immutable
// afterwards.
func (s *Service) Register(ctx context.Context, caller id.Account, cmd RegisterCommand) (Batch, error) {
	if err := validateRegister(cmd); err != nil {
		return Batch{}, err
	}
	if err := roles.Require(ctx, s.checker, caller, id.RoleManufacturer); err != nil {
		s.metrics.IncPermissionDenied("batches")
		return Batch{}, err
	}

	start := time.Now()
	record := Batch{
		BatchID:        cmd.BatchID,
		Name:           cmd.Name,
		Dosage:         cmd.Dosage,
		ExpirationDate: cmd.ExpirationDate,
		Description:    cmd.Description,
		ContentRef:     cmd.ContentRef,
		Manufacturer:   caller,
		RegisteredAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Batch{}, dErrors.Newf(dErrors.CodeAlreadyExists, "batch %q already registered", cmd.BatchID)
		}
		return Batch{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register batch")
	}

	s.metrics.IncBatchesRegistered()
	s.metrics.ObserveWrite("register_batch", start)
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionBatchRegistered,
		Actor:   caller,
		Subject: record.BatchID,
		Ref:     record.ContentRef,
	})
	return record, nil
}

// Get returns a batch by id. Pure read.
func (s *Service) Get(ctx context.Context, batchID string) (Batch, error) {
	record, err := s.store.Find(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Batch{}, dErrors.Newf(dErrors.CodeNotFound, "batch %q not found", batchID)
		}
		return Batch{}, dErrors.Wrap(err, dErrors.CodeInternal, "batch lookup failed")
	}
	return record, nil
}

// List replays the registration event log in append order. Only committed
// state is visible; the order is insertion order, never re-sorted.
func (s *Service) List(ctx context.Context) ([]Batch, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch listing failed")
	}
	out := make([]Batch, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Batch)
	}
	return out, nil
}

// Exists reports whether a batch id is registered. Used by the prescription
// and transfer registries to validate foreign references at write time.
func (s *Service) Exists(ctx context.Context, batchID string) (bool, error) {
	ok, err := s.store.Exists(ctx, batchID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "batch existence check failed")
	}
	return ok, nil
}

// Verification is the result of a batch authenticity check.
type Verification struct {
	BatchID    string     `json:"batch_id"`
	Registered bool       `json:"registered"`
	Expired    bool       `json:"expired"`
	ExpiresOn  string     `json:"expires_on,omitempty"`
	Registrant id.Account `json:"registrant,omitempty"`
}

// Verify checks that a batch is registered and not past its expiration date.
func (s *Service) Verify(ctx context.Context, batchID string) (Verification, error) {
	record, err := s.store.Find(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Verification{BatchID: batchID}, nil
		}
		return Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "batch verification failed")
	}

	expired := false
	if expiresOn, parseErr := time.Parse(expirationLayout, record.ExpirationDate); parseErr == nil {
		expired = requestcontext.Now(ctx).After(expiresOn.AddDate(0, 0, 1))
	}
	return Verification{
		BatchID:    record.BatchID,
		Registered: true,
		Expired:    expired,
		ExpiresOn:  record.ExpirationDate,
		Registrant: record.Manufacturer,
	}, nil
}

func validateRegister(cmd RegisterCommand) error {
	switch {
	case strings.TrimSpace(cmd.BatchID) == "":
		return dErrors.New(dErrors.CodeValidation, "batch id is required")
	case len(cmd.BatchID) > 128:
		return dErrors.New(dErrors.CodeValidation, "batch id must be 128 characters or less")
	case strings.TrimSpace(cmd.Name) == "":
		return dErrors.New(dErrors.CodeValidation, "batch name is required")
	case strings.TrimSpace(cmd.Dosage) == "":
		return dErrors.New(dErrors.CodeValidation, "dosage is required")
	case strings.TrimSpace(cmd.Description) == "":
		return dErrors.New(dErrors.CodeValidation, "description is required")
	case cmd.ContentRef.IsZero():
		return dErrors.New(dErrors.CodeValidation, "content reference is required")
	}
	if _, err := time.Parse(expirationLayout, cmd.ExpirationDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "expiration date must be YYYY-MM-DD")
	}
	return nil
}
