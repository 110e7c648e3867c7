// Package router assembles the chi router for the booking API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicware/booking-engine/internal/http/handlers"
	httpmiddleware "github.com/clinicware/booking-engine/internal/http/middleware"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger            *logging.Logger
	WebhookHandler    *handlers.WebhookHandler
	CatalogHandler    *handlers.CatalogHandler
	TranscriptHandler *handlers.TranscriptHandler
	MetricsHandler    http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.WebhookHandler.HealthCheck)
	r.Post("/webhooks/messages", cfg.WebhookHandler.HandleMessages)

	if cfg.CatalogHandler != nil {
		r.Route("/clinics/{clinicID}/catalog", func(r chi.Router) {
			r.Get("/", cfg.CatalogHandler.GetCatalog)
			r.Put("/", cfg.CatalogHandler.PutCatalog)
		})
	}
	if cfg.TranscriptHandler != nil {
		r.Get("/clinics/{clinicID}/transcripts/{phone}", cfg.TranscriptHandler.GetTranscript)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
