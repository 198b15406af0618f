// Package http assembles the ledger's HTTP surface.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pharmledger/internal/platform/middleware"
)

// Registrar is anything that can mount routes on the router. Every feature
// handler satisfies it.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs. Handlers may be nil when the
// feature is not configured (e.g. no blob store in tests).
type Deps struct {
	Logger        *slog.Logger
	JWTSigningKey string

	Roles         Registrar
	Batches       Registrar
	Prescriptions Registrar
	Transfers     Registrar
	Credentials   Registrar
	Files         Registrar

	Health http.HandlerFunc
}

// New builds the router: public health and metrics endpoints, then the
// authenticated API. JSON enforcement is skipped for the file routes, which
// accept multipart uploads.
func New(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))

	if deps.Health != nil {
		r.Get("/healthz", deps.Health)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.JWTSigningKey, deps.Logger))

		api.Group(func(jsonAPI chi.Router) {
			jsonAPI.Use(middleware.ContentTypeJSON)
			register(jsonAPI, deps.Roles, deps.Batches, deps.Prescriptions, deps.Transfers, deps.Credentials)
		})
		register(api, deps.Files)
	})

	return r
}

func register(r chi.Router, handlers ...Registrar) {
	for _, h := range handlers {
		if h != nil {
			h.Register(r)
		}
	}
}
