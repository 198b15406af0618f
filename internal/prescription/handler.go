package prescription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "pharmledger/pkg/domain"
	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// Handler exposes the prescription ledger over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the prescription routes. The static /unfulfilled route must
// stay alongside the {prescriptionID} route; chi matches static paths first.
func (h *Handler) Register(r chi.Router) {
	r.Post("/prescriptions", h.handleIssue)
	r.Get("/prescriptions/unfulfilled", h.handleListUnfulfilled)
	r.Get("/prescriptions/{prescriptionID}", h.handleGet)
	r.Post("/prescriptions/{prescriptionID}/fulfill", h.handleFulfill)
}

type issueRequest struct {
	PrescriptionID string `json:"prescription_id"`
	BatchID        string `json:"batch_id"`
	Patient        string `json:"patient"`
	ContentRef     string `json:"content_ref"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	var req issueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	patient, err := id.ParseAccount(req.Patient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ref, err := id.ParseContentRef(req.ContentRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Issue(ctx, caller, IssueCommand{
		PrescriptionID: req.PrescriptionID,
		BatchID:        req.BatchID,
		Patient:        patient,
		ContentRef:     ref,
	})
	if err != nil {
		h.logWriteFailure(r, "issue prescription", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleFulfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Account(ctx)

	record, err := h.service.Fulfill(ctx, caller, chi.URLParam(r, "prescriptionID"))
	if err != nil {
		h.logWriteFailure(r, "fulfill prescription", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "prescriptionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListUnfulfilled(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListUnfulfilled(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []Prescription{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"prescriptions": records})
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
