// Package router assembles the chi HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atendezap/atendezap/internal/http/handlers"
	httpmiddleware "github.com/atendezap/atendezap/internal/http/middleware"
	"github.com/atendezap/atendezap/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	WhatsAppWebhook *handlers.WhatsAppWebhookHandler
	MetricsHandler  http.Handler

	// Requests/second allowed per IP on the inbound webhook, 0 disables
	// rate limiting.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)

	if cfg.WhatsAppWebhook != nil {
		r.Route("/webhooks/whatsapp", func(wh chi.Router) {
			if cfg.WebhookRateLimit > 0 {
				burst := cfg.WebhookBurst
				if burst <= 0 {
					burst = int(cfg.WebhookRateLimit * 2)
				}
				wh.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, burst))
			}
			wh.Get("/", cfg.WhatsAppWebhook.Verify)
			wh.Post("/", cfg.WhatsAppWebhook.HandleInbound)
		})
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
