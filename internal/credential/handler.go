package credential

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// Handler exposes the credential registry over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential routes. Auth middleware runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.handleIssue)
	r.Get("/credentials/{hash}", h.handleMetadata)
	r.Get("/credentials/{hash}/verify", h.handleVerify)
}

type issueCredentialRequest struct {
	Hash    string `json:"hash"`
	Schema  string `json:"schema"`
	Subject string `json:"subject"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	var req issueCredentialRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, err := id.ParseAccount(req.Subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Issue(ctx, caller, IssueCommand{
		Hash:    req.Hash,
		Schema:  req.Schema,
		Subject: subject,
	})
	if err != nil {
		h.logWriteFailure(r, "issue credential", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Metadata(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	issued, err := h.service.Verify(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"hash": hash, "issued": issued})
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
