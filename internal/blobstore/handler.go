package blobstore

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "pharmledger/pkg/domain-errors"
	"pharmledger/pkg/platform/httputil"
	"pharmledger/pkg/requestcontext"
)

// maxUploadBytes caps document uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Handler exposes document upload and resolution over HTTP.
type Handler struct {
	client *Client
	logger *slog.Logger
}

func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Register mounts the blob store routes. Auth middleware runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/files", h.handleUpload)
	r.Get("/files/{contentRef}", h.handleResolve)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	ref, err := h.client.Upload(ctx, header.Filename, file)
	if err != nil {
		h.logger.WarnContext(ctx, "upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resolution, err := h.client.Resolve(ctx, ref.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resolution)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	resolution, err := h.client.Resolve(r.Context(), chi.URLParam(r, "contentRef"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolution)
}
