package credential

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/roles"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
)

const (
	adminAddr      = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	doctorAddr     = id.Account("0x3333333333333333333333333333333333333333")
	makerAddr      = id.Account("0x1111111111111111111111111111111111111111")
	pharmacyAddr   = id.Account("0x4444444444444444444444444444444444444444")
	wholesalerAddr = id.Account("0x6666666666666666666666666666666666666666")
	subjectAddr    = id.Account("0x5555555555555555555555555555555555555555")
	nobodyAddr     = id.Account("0x2222222222222222222222222222222222222222")
)

const testHash = "0x9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658"

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	roleSvc := roles.NewService(roles.NewInMemory(), adminAddr, nil, nil, logger)
	for target, role := range map[id.Account]id.Role{
		doctorAddr:     id.RoleDoctor,
		makerAddr:      id.RoleManufacturer,
		pharmacyAddr:   id.RolePharmacy,
		wholesalerAddr: id.RoleWholesaler,
	} {
		require.NoError(t, roleSvc.AssignRole(ctx, adminAddr, target, role))
	}
	return NewService(NewInMemory(), roleSvc, nil, nil, logger)
}

func credentialCommand(hash string) IssueCommand {
	return IssueCommand{Hash: hash, Schema: "medical-license/v1", Subject: subjectAddr}
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("each issuer-capable role may issue", func(t *testing.T) {
		svc := newTestService(t)
		for i, caller := range []id.Account{doctorAddr, makerAddr, pharmacyAddr} {
			hash := testHash + string(rune('a'+i))
			record, err := svc.Issue(ctx, caller, credentialCommand(hash))
			require.NoError(t, err, caller)
			assert.Equal(t, caller, record.Issuer)
			assert.False(t, record.IssuedAt.IsZero())
		}
	})

	t.Run("wholesaler and unknown callers are denied", func(t *testing.T) {
		svc := newTestService(t)
		for _, caller := range []id.Account{wholesalerAddr, nobodyAddr} {
			_, err := svc.Issue(ctx, caller, credentialCommand(testHash))
			require.Error(t, err, caller)
			assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied), caller)
		}

		issued, err := svc.Verify(ctx, testHash)
		require.NoError(t, err)
		assert.False(t, issued, "denied writes must not register the hash")
	})

	t.Run("duplicate hash yields AlreadyExists, not silent acceptance", func(t *testing.T) {
		svc := newTestService(t)
		first, err := svc.Issue(ctx, doctorAddr, credentialCommand(testHash))
		require.NoError(t, err)

		_, err = svc.Issue(ctx, pharmacyAddr, credentialCommand(testHash))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists))

		current, err := svc.Metadata(ctx, testHash)
		require.NoError(t, err)
		assert.Equal(t, first, current, "failed write must not change stored state")
	})

	t.Run("missing required fields are rejected", func(t *testing.T) {
		svc := newTestService(t)
		for name, mutate := range map[string]func(*IssueCommand){
			"hash":    func(c *IssueCommand) { c.Hash = " " },
			"schema":  func(c *IssueCommand) { c.Schema = "" },
			"subject": func(c *IssueCommand) { c.Subject = "" },
		} {
			cmd := credentialCommand(testHash)
			mutate(&cmd)
			_, err := svc.Issue(ctx, doctorAddr, cmd)
			require.Error(t, err, name)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), name)
		}
	})
}

func TestVerifyAndMetadata(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("unknown hash verifies false without error", func(t *testing.T) {
		issued, err := svc.Verify(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, issued)
	})

	t.Run("unknown hash metadata yields NotFound", func(t *testing.T) {
		_, err := svc.Metadata(ctx, "unknown")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("issued hash verifies true and returns metadata", func(t *testing.T) {
		issued, err := svc.Issue(ctx, doctorAddr, credentialCommand(testHash))
		require.NoError(t, err)

		ok, err := svc.Verify(ctx, testHash)
		require.NoError(t, err)
		assert.True(t, ok)

		record, err := svc.Metadata(ctx, testHash)
		require.NoError(t, err)
		assert.Equal(t, issued, record)
	})
}
