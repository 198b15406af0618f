// Package roles holds the role assignments every other registry gate-checks.
package roles

import (
	"context"
	"log/slog"

	"pharmledger/internal/audit"
	"pharmledger/internal/platform/metrics"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/requestcontext"
)

// Checker is the capability-check surface the other registries consume. It is
// deliberately the only way role gating happens, so the logic stays auditable
// in one place.
type Checker interface {
	HasRole(ctx context.Context, account id.Account, role id.Role) (bool, error)
}

// Require returns PermissionDenied unless the account holds the role.
func Require(ctx context.Context, checker Checker, account id.Account, role id.Role) error {
	ok, err := checker.HasRole(ctx, account, role)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role check failed")
	}
	if !ok {
		return dErrors.Newf(dErrors.CodePermissionDenied, "%s role required", role)
	}
	return nil
}

// RequireAny returns PermissionDenied unless the account holds at least one of
// the given roles.
func RequireAny(ctx context.Context, checker Checker, account id.Account, candidates ...id.Role) error {
	for _, role := range candidates {
		ok, err := checker.HasRole(ctx, account, role)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "role check failed")
		}
		if ok {
			return nil
		}
	}
	return dErrors.New(dErrors.CodePermissionDenied, "caller lacks an authorized role")
}

// Service owns role assignment. The admin account is fixed at construction
// (the bootstrap capability) and is never grantable.
type Service struct {
	store   Store
	admin   id.Account
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, admin id.Account, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, admin: admin, auditor: auditor, metrics: m, logger: logger}
}

// AssignRole grants a domain role to target. Only the admin may call it.
// Re-granting a held role is an idempotent no-op.
func (s *Service) AssignRole(ctx context.Context, caller, target id.Account, role id.Role) error {
	if target.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "target account is required")
	}
	if !isDomainRole(role) {
		return dErrors.Newf(dErrors.CodeValidation, "role %q is not assignable", role)
	}
	if caller != s.admin {
		s.metrics.IncPermissionDenied("roles")
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}

	granted, err := s.store.Grant(ctx, GrantedEvent{
		Account:   target,
		Role:      role,
		GrantedBy: caller,
		GrantedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}
	if !granted {
		return nil
	}

	s.metrics.IncRolesGranted()
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionRoleGranted,
		Actor:   caller,
		Subject: target.String(),
		Details: map[string]any{"role": role.String()},
	})
	return nil
}

// HasRole reports whether the account holds the role. Pure read.
// The bootstrap admin answers true only for the Admin capability itself.
func (s *Service) HasRole(ctx context.Context, account id.Account, role id.Role) (bool, error) {
	if role == id.RoleAdmin {
		return account == s.admin, nil
	}
	ok, err := s.store.Has(ctx, account, role)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	return ok, nil
}

// Roles lists the domain roles an account holds, for dashboard display.
func (s *Service) Roles(ctx context.Context, account id.Account) ([]id.Role, error) {
	held, err := s.store.List(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role listing failed")
	}
	return held, nil
}

func isDomainRole(role id.Role) bool {
	for _, candidate := range id.DomainRoles {
		if role == candidate {
			return true
		}
	}
	return false
}
