package transfer

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// Handler exposes the transfer log over HTTP, nested under batches.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the transfer routes. Auth middleware runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/batches/{batchID}/transfers", h.handleLog)
	r.Get("/batches/{batchID}/transfers", h.handleHistory)
	r.Get("/batches/{batchID}/transfers/count", h.handleCount)
}

type logTransferRequest struct {
	To         string `json:"to"`
	ContentRef string `json:"content_ref"`
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	var req logTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	recipient, err := id.ParseAccount(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ref, err := id.ParseContentRef(req.ContentRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Log(ctx, caller, LogCommand{
		BatchID:    chi.URLParam(r, "batchID"),
		To:         recipient,
		ContentRef: ref,
	})
	if err != nil {
		h.logWriteFailure(r, "log transfer", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.History(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transfers": records})
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"count": count})
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
