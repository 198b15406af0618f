package prescription

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/batch"
	"pharmledger/internal/roles"
	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
)

const (
	adminAddr    = id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	doctorAddr   = id.Account("0x3333333333333333333333333333333333333333")
	pharmacyAddr = id.Account("0x4444444444444444444444444444444444444444")
	patientAddr  = id.Account("0x5555555555555555555555555555555555555555")
	makerAddr    = id.Account("0x1111111111111111111111111111111111111111")
	nobodyAddr   = id.Account("0x2222222222222222222222222222222222222222")
)

var testRef = id.ContentRef("Qm" + strings.Repeat("Yw", 22))

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	roleSvc := roles.NewService(roles.NewInMemory(), adminAddr, nil, nil, logger)
	for target, role := range map[id.Account]id.Role{
		doctorAddr:   id.RoleDoctor,
		pharmacyAddr: id.RolePharmacy,
		makerAddr:    id.RoleManufacturer,
	} {
		require.NoError(t, roleSvc.AssignRole(ctx, adminAddr, target, role))
	}

	batchSvc := batch.NewService(batch.NewInMemory(), roleSvc, nil, nil, logger)
	_, err := batchSvc.Register(ctx, makerAddr, batch.RegisterCommand{
		BatchID:        "B1",
		Name:           "Aspirin",
		Dosage:         "500mg",
		ExpirationDate: "2026-01-01",
		Description:    "desc",
		ContentRef:     testRef,
	})
	require.NoError(t, err)

	return NewService(NewInMemory(), roleSvc, batchSvc, nil, nil, logger)
}

func issueCommand(prescriptionID string) IssueCommand {
	return IssueCommand{
		PrescriptionID: prescriptionID,
		BatchID:        "B1",
		Patient:        patientAddr,
		ContentRef:     testRef,
	}
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("doctor issues and reads back a prescription", func(t *testing.T) {
		svc := newTestService(t)
		created, err := svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.NoError(t, err)
		assert.Equal(t, doctorAddr, created.IssuedBy)
		assert.False(t, created.Fulfilled)
		assert.Nil(t, created.FulfilledAt)

		found, err := svc.Get(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, created, found)
	})

	t.Run("duplicate prescription id yields AlreadyExists", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.NoError(t, err)

		_, err = svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	t.Run("unregistered batch yields NotFound", func(t *testing.T) {
		svc := newTestService(t)
		cmd := issueCommand("P1")
		cmd.BatchID = "ghost"
		_, err := svc.Issue(ctx, doctorAddr, cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("caller without doctor role is denied", func(t *testing.T) {
		svc := newTestService(t)
		for _, caller := range []id.Account{pharmacyAddr, makerAddr, nobodyAddr} {
			_, err := svc.Issue(ctx, caller, issueCommand("P1"))
			require.Error(t, err, caller)
			assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied), caller)
		}

		pending, err := svc.ListUnfulfilled(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending, "denied writes must leave the ledger empty")
	})

	t.Run("missing required fields are rejected", func(t *testing.T) {
		svc := newTestService(t)
		for name, mutate := range map[string]func(*IssueCommand){
			"prescription id": func(c *IssueCommand) { c.PrescriptionID = " " },
			"batch id":        func(c *IssueCommand) { c.BatchID = "" },
			"patient":         func(c *IssueCommand) { c.Patient = "" },
			"content ref":     func(c *IssueCommand) { c.ContentRef = "" },
		} {
			cmd := issueCommand("P1")
			mutate(&cmd)
			_, err := svc.Issue(ctx, doctorAddr, cmd)
			require.Error(t, err, name)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), name)
		}
	})
}

func TestFulfill(t *testing.T) {
	ctx := context.Background()

	t.Run("pharmacy fulfills an issued prescription", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.NoError(t, err)

		fulfilled, err := svc.Fulfill(ctx, pharmacyAddr, "P1")
		require.NoError(t, err)
		assert.True(t, fulfilled.Fulfilled)
		assert.Equal(t, pharmacyAddr, fulfilled.FulfilledBy)
		require.NotNil(t, fulfilled.FulfilledAt)
	})

	t.Run("second fulfillment yields InvalidState", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.NoError(t, err)
		first, err := svc.Fulfill(ctx, pharmacyAddr, "P1")
		require.NoError(t, err)

		_, err = svc.Fulfill(ctx, pharmacyAddr, "P1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		current, err := svc.Get(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, first, current, "failed transition must not change stored state")
	})

	t.Run("caller without pharmacy role is denied", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Issue(ctx, doctorAddr, issueCommand("P1"))
		require.NoError(t, err)

		_, err = svc.Fulfill(ctx, doctorAddr, "P1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))

		current, err := svc.Get(ctx, "P1")
		require.NoError(t, err)
		assert.False(t, current.Fulfilled, "denied fulfillment must not mutate")
	})

	t.Run("unknown prescription yields NotFound", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Fulfill(ctx, pharmacyAddr, "missing")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestListUnfulfilled(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, prescriptionID := range []string{"P3", "P1", "P2"} {
		_, err := svc.Issue(ctx, doctorAddr, issueCommand(prescriptionID))
		require.NoError(t, err)
	}
	_, err := svc.Fulfill(ctx, pharmacyAddr, "P1")
	require.NoError(t, err)

	pending, err := svc.ListUnfulfilled(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.PrescriptionID)
	}
	assert.Equal(t, []string{"P3", "P2"}, ids, "issue order with fulfilled ids removed")
}
