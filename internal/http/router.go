// Package http assembles the service router. Handlers stay in their module
// packages; this only mounts them and applies shared middleware.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eligibilityhandler "mosolo/internal/eligibility/handler"
	notificationhandler "mosolo/internal/notification/handler"
	"mosolo/pkg/platform/middleware"
)

// Deps are the handlers the router mounts.
type Deps struct {
	Eligibility  *eligibilityhandler.Handler
	Notification *notificationhandler.Handler
	Health       func(r *http.Request) error
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)

	deps.Eligibility.Register(r)
	deps.Notification.Register(r)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
