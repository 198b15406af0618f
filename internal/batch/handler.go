package batch

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// Handler exposes the batch registry over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the batch routes. Auth middleware runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/batches", h.handleRegister)
	r.Get("/batches", h.handleList)
	r.Get("/batches/{batchID}", h.handleGet)
	r.Get("/batches/{batchID}/verify", h.handleVerify)
}

type registerBatchRequest struct {
	BatchID        string `json:"batch_id"`
	Name           string `json:"name"`
	Dosage         string `json:"dosage"`
	ExpirationDate string `json:"expiration_date"`
	Description    string `json:"description"`
	ContentRef     string `json:"content_ref"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	var req registerBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ref, err := id.ParseContentRef(req.ContentRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Register(ctx, caller, RegisterCommand{
		BatchID:        req.BatchID,
		Name:           req.Name,
		Dosage:         req.Dosage,
		ExpirationDate: req.ExpirationDate,
		Description:    req.Description,
		ContentRef:     ref,
	})
	if err != nil {
		h.logWriteFailure(r, "register batch", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"batches": records})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Verify(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
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
