package roles

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/testutil"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newTestService(), slog.New(slog.DiscardHandler)).Register(r)
	return r
}

type hasRoleResponse struct {
	HasRole bool `json:"has_role"`
}

func TestHandlerHas(t *testing.T) {
	router := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/roles", map[string]string{
		"target": targetAddr.String(),
		"role":   "doctor",
	})
	req = testutil.WithAccount(req, adminAddr.String())
	require.Equal(t, http.StatusNoContent, testutil.DoRequest(router, req).Code)

	t.Run("reports a granted role", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/roles/"+targetAddr.String()+"/doctor"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.True(t, testutil.UnmarshalResponse[hasRoleResponse](t, rr).HasRole)
	})

	t.Run("admin capability is queryable on the read path", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/roles/"+adminAddr.String()+"/admin"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.True(t, testutil.UnmarshalResponse[hasRoleResponse](t, rr).HasRole)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/roles/"+targetAddr.String()+"/admin"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.False(t, testutil.UnmarshalResponse[hasRoleResponse](t, rr).HasRole)
	})

	t.Run("admin is still not assignable", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/roles", map[string]string{
			"target": otherAddr.String(),
			"role":   "admin",
		})
		req = testutil.WithAccount(req, adminAddr.String())
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})

	t.Run("unknown role name is rejected", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/roles/"+targetAddr.String()+"/janitor"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})
}
