package roles

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
)

const (
	adminAddr  = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	targetAddr = id.Account("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	otherAddr  = id.Account("0xcccccccccccccccccccccccccccccccccccccccc")
)

func newTestService() *Service {
	return NewService(NewInMemory(), adminAddr, nil, nil, slog.New(slog.DiscardHandler))
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()

	t.Run("grant then hasRole", func(t *testing.T) {
		svc := newTestService()

		ok, err := svc.HasRole(ctx, targetAddr, id.RoleDoctor)
		require.NoError(t, err)
		assert.False(t, ok, "role must not be held before any grant")

		require.NoError(t, svc.AssignRole(ctx, adminAddr, targetAddr, id.RoleDoctor))

		ok, err = svc.HasRole(ctx, targetAddr, id.RoleDoctor)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("repeated grants stay idempotent", func(t *testing.T) {
		svc := newTestService()
		for i := 0; i < 3; i++ {
			require.NoError(t, svc.AssignRole(ctx, adminAddr, targetAddr, id.RolePharmacy))
		}
		ok, err := svc.HasRole(ctx, targetAddr, id.RolePharmacy)
		require.NoError(t, err)
		assert.True(t, ok)

		events, err := svc.store.Events(ctx)
		require.NoError(t, err)
		assert.Len(t, events, 1, "no-op re-grants must not append events")
	})

	t.Run("non-admin caller is denied", func(t *testing.T) {
		svc := newTestService()
		err := svc.AssignRole(ctx, otherAddr, targetAddr, id.RoleDoctor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))

		ok, err := svc.HasRole(ctx, targetAddr, id.RoleDoctor)
		require.NoError(t, err)
		assert.False(t, ok, "denied assignment must not mutate state")
	})

	t.Run("admin capability is not assignable", func(t *testing.T) {
		svc := newTestService()
		err := svc.AssignRole(ctx, adminAddr, targetAddr, id.RoleAdmin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty target is rejected", func(t *testing.T) {
		svc := newTestService()
		err := svc.AssignRole(ctx, adminAddr, "", id.RoleDoctor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("an account can hold several roles", func(t *testing.T) {
		svc := newTestService()
		require.NoError(t, svc.AssignRole(ctx, adminAddr, targetAddr, id.RoleManufacturer))
		require.NoError(t, svc.AssignRole(ctx, adminAddr, targetAddr, id.RoleWholesaler))

		held, err := svc.Roles(ctx, targetAddr)
		require.NoError(t, err)
		assert.Equal(t, []id.Role{id.RoleManufacturer, id.RoleWholesaler}, held)
	})
}

func TestHasRole_Admin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	ok, err := svc.HasRole(ctx, adminAddr, id.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok, "bootstrap admin holds the admin capability")

	ok, err = svc.HasRole(ctx, otherAddr, id.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	require.NoError(t, svc.AssignRole(ctx, adminAddr, targetAddr, id.RoleDoctor))

	assert.NoError(t, Require(ctx, svc, targetAddr, id.RoleDoctor))

	err := Require(ctx, svc, otherAddr, id.RoleDoctor)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))

	assert.NoError(t, RequireAny(ctx, svc, targetAddr, id.RolePharmacy, id.RoleDoctor))
	err = RequireAny(ctx, svc, otherAddr, id.RolePharmacy, id.RoleDoctor)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
}
