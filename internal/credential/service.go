// Package credential records the hashes of issued verifiable credentials so
// third parties can check a credential exists without seeing its contents.
package credential

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

// Service owns the credential registry.
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

// Issue records a credential hash. Gated to issuer-capable roles. A repeated
// hash is rejected with AlreadyExists rather than silently accepted, so the
// log keeps exactly one issuance per credential.
func (s *Service) Issue(ctx context.Context, caller id.Account, cmd IssueCommand) (Credential, error) {
	if err := validateIssue(cmd); err != nil {
		return Credential{}, err
	}
	if err := roles.RequireAny(ctx, s.checker, caller, id.IssuerRoles...); err != nil {
		s.metrics.IncPermissionDenied("credentials")
		return Credential{}, err
	}

	start := time.Now()
	record := Credential{
		Hash:     cmd.Hash,
		Subject:  cmd.Subject,
		Issuer:   caller,
		Schema:   cmd.Schema,
		IssuedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Credential{}, dErrors.Newf(dErrors.CodeAlreadyExists, "credential %q already issued", cmd.Hash)
		}
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
	}

	s.metrics.IncCredentialsIssued()
	s.metrics.ObserveWrite("issue_credential", start)
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionCredentialIssued,
		Actor:   caller,
		Subject: record.Hash,
	})
	return record, nil
}

// Verify reports whether a credential hash has been issued. Pure existence
// check, an unknown hash is false, not an error.
func (s *Service) Verify(ctx context.Context, hash string) (bool, error) {
	ok, err := s.store.Exists(ctx, hash)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "credential check failed")
	}
	return ok, nil
}

// Metadata returns a credential's metadata by hash.
func (s *Service) Metadata(ctx context.Context, hash string) (Credential, error) {
	record, err := s.store.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Credential{}, dErrors.Newf(dErrors.CodeNotFound, "credential %q not found", hash)
		}
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}
	return record, nil
}

func validateIssue(cmd IssueCommand) error {
	switch {
	case strings.TrimSpace(cmd.Hash) == "":
		return dErrors.New(dErrors.CodeValidation, "credential hash is required")
	case len(cmd.Hash) > 256:
		return dErrors.New(dErrors.CodeValidation, "credential hash must be 256 characters or less")
	case strings.TrimSpace(cmd.Schema) == "":
		return dErrors.New(dErrors.CodeValidation, "schema is required")
	case cmd.Subject.IsZero():
		return dErrors.New(dErrors.CodeValidation, "subject account is required")
	}
	return nil
}
