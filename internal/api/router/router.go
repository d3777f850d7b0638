// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/private-ca/internal/api/handler"
	"github.com/remiblancher/private-ca/internal/api/middleware"
	"github.com/remiblancher/private-ca/internal/api/service"
	"github.com/remiblancher/private-ca/internal/ca"
)

// Config holds router configuration.
type Config struct {
	Version  string
	Engine   *ca.Engine
	Store    ca.Store
	AuditLog string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)

	// Health endpoints
	healthHandler := handler.NewHealthHandler(cfg.Version)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	caService := service.NewCAService(cfg.Engine, cfg.Store)
	certService := service.NewCertService(cfg.Engine, cfg.Store)

	caHandler := handler.NewCAHandler(caService)
	certHandler := handler.NewCertHandler(certService)
	auditHandler := handler.NewAuditHandler(cfg.AuditLog)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ca", func(r chi.Router) {
			r.Post("/", caHandler.Create)
			r.Get("/", caHandler.List)
			r.Get("/{name}", caHandler.Get)
			r.Get("/{name}/children", caHandler.Children)

			r.Post("/{name}/certs", certHandler.Issue)
			r.Get("/{name}/certs/{serial}", certHandler.Get)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Post("/verify", auditHandler.Verify)
		})
	})

	return r
}
