package roles

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// Handler exposes role assignment and introspection over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the role routes. Auth middleware runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/roles", h.handleAssign)
	r.Get("/roles/{account}", h.handleList)
	r.Get("/roles/{account}/{role}", h.handleHas)
}

type assignRoleRequest struct {
	Target string `json:"target"`
	Role   string `json:"role"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	var req assignRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := id.ParseAccount(req.Target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AssignRole(ctx, caller, target, role); err != nil {
		h.logWriteFailure(r, "assign role", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	held, err := h.service.Roles(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"roles":   held,
	})
}

func (h *Handler) handleHas(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := parseRoleQuery(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.service.HasRole(r.Context(), account, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"has_role": ok})
}

// parseRoleQuery accepts any role on the read path, including the admin
// capability that ParseRole keeps out of the assignment path.
func parseRoleQuery(raw string) (id.Role, error) {
	if strings.EqualFold(strings.TrimSpace(raw), id.RoleAdmin.String()) {
		return id.RoleAdmin, nil
	}
	return id.ParseRole(raw)
}

func (h *Handler) logWriteFailure(r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op+" failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err.Error(),
	)
}
