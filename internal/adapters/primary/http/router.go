package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/lorrc/service-desk-notifier/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-notifier/internal/auth"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
)

// RouterConfig collects the handlers served by the bridge.
type RouterConfig struct {
	Signals      *SignalHandler
	Preview      *PreviewHandler
	Health       *HealthHandler
	WebSocket    *WebSocketHandler
	TokenManager *auth.TokenManager
	CORSOrigins  []string
	Logger       *slog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	errorHandler := NewErrorHandler(cfg.Logger)

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errorHandler.Handle(w, req, apperrors.NewNotFoundError(
			fmt.Errorf("no route for %s", req.URL.Path), "Route not found"))
	})

	// Probes and metrics (outside /api/v1 for standard paths)
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (authentication is handled inside the handler)
		if cfg.WebSocket != nil {
			r.Get("/ws", cfg.WebSocket.ServeHTTP)
		}

		if cfg.Signals != nil {
			r.Route("/signals", func(r chi.Router) {
				r.Use(mw.JWTMiddleware(cfg.TokenManager))
				r.Use(mw.RequireScope(auth.ScopeSignalsWrite))
				cfg.Signals.RegisterRoutes(r)
			})
		}

		// The preview is called from operator browsers; CORS runs first so
		// preflight requests never need a token.
		if cfg.Preview != nil {
			r.Route("/preview", func(r chi.Router) {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins:   cfg.CORSOrigins,
					AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
					AllowedHeaders:   []string{"Authorization", "Content-Type", mw.RequestIDHeader},
					ExposedHeaders:   []string{mw.RequestIDHeader},
					AllowCredentials: false,
					MaxAge:           300,
				}))
				r.Use(mw.JWTMiddleware(cfg.TokenManager))
				r.Use(mw.RequireScope(auth.ScopeTemplatePreview))
				cfg.Preview.RegisterRoutes(r)
			})
		}
	})

	return r
}
