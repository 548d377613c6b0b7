package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/scam-honeypot/internal/honeypot"
	httpmiddleware "github.com/wolfman30/scam-honeypot/internal/http/middleware"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	HoneypotHandler    *honeypot.Handler
	APIKey             string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	h := cfg.HoneypotHandler

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", h.Health)
		public.Get("/api/health", h.Health)
		public.Get("/honeypot/message", h.Info)
		public.Get("/api/honeypot/message", h.Info)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Message intake, guarded by the shared API key when one is configured
	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.APIKey(cfg.APIKey))
		protected.Post("/honeypot/message", h.Message)
		protected.Post("/api/honeypot/message", h.Message)
	})

	return r
}
