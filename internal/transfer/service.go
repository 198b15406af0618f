// Package transfer records the custody chain of drug batches between supply
// chain participants.
package transfer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pharmledger/internal/audit"
	"pharmledger/internal/platform/metrics"
	"pharmledger/internal/roles"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/requestcontext"
)

// BatchDirectory is the slice of the batch registry this service needs:
// transfers may only reference registered batches.
type BatchDirectory interface {
	Exists(ctx context.Context, batchID string) (bool, error)
}

// Service owns the transfer log.
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

// Log appends a custody transfer. Gated to manufacturers and wholesalers,
// the parties that hand batches onward. The caller is recorded as the sender
// and the store assigns the next sequence number.
func (s *Service) Log(ctx context.Context, caller id.Account, cmd LogCommand) (Record, error) {
	if err := validateLog(cmd); err != nil {
		return Record{}, err
	}
	if err := roles.RequireAny(ctx, s.checker, caller, id.RoleManufacturer, id.RoleWholesaler); err != nil {
		s.metrics.IncPermissionDenied("transfers")
		return Record{}, err
	}

	known, err := s.batches.Exists(ctx, cmd.BatchID)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check batch")
	}
	if !known {
		return Record{}, dErrors.Newf(dErrors.CodeNotFound, "batch %q not registered", cmd.BatchID)
	}

	start := time.Now()
	record, err := s.store.Append(ctx, Record{
		BatchID:    cmd.BatchID,
		From:       caller,
		To:         cmd.To,
		ContentRef: cmd.ContentRef,
		LoggedAt:   requestcontext.Now(ctx),
	})
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to log transfer")
	}

	s.metrics.IncTransfersLogged()
	s.metrics.ObserveWrite("log_transfer", start)
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionTransferLogged,
		Actor:   caller,
		Subject: record.BatchID,
		Ref:     record.ContentRef,
	})
	return record, nil
}

// History returns a batch's transfers in sequence order. A registered batch
// with no transfers yields an empty history, an unknown batch NotFound.
func (s *Service) History(ctx context.Context, batchID string) ([]Record, error) {
	if err := s.requireBatch(ctx, batchID); err != nil {
		return nil, err
	}
	records, err := s.store.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "transfer history failed")
	}
	return records, nil
}

// Count returns how many transfers a batch has accumulated.
func (s *Service) Count(ctx context.Context, batchID string) (int, error) {
	if err := s.requireBatch(ctx, batchID); err != nil {
		return 0, err
	}
	count, err := s.store.CountByBatch(ctx, batchID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "transfer count failed")
	}
	return count, nil
}

func (s *Service) requireBatch(ctx context.Context, batchID string) error {
	known, err := s.batches.Exists(ctx, batchID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check batch")
	}
	if !known {
		return dErrors.Newf(dErrors.CodeNotFound, "batch %q not registered", batchID)
	}
	return nil
}

func validateLog(cmd LogCommand) error {
	switch {
	case strings.TrimSpace(cmd.BatchID) == "":
		return dErrors.New(dErrors.CodeValidation, "batch id is required")
	case cmd.To.IsZero():
		return dErrors.New(dErrors.CodeValidation, "recipient account is required")
	case cmd.ContentRef.IsZero():
		return dErrors.New(dErrors.CodeValidation, "content reference is required")
	}
	return nil
}
