package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/accountd/accountd/internal/middleware"
)

// RouterConfig carries everything NewRouter needs to assemble the HTTP
// surface. Images is optional; when nil the pic routes are not mounted.
type RouterConfig struct {
	Logger   *slog.Logger
	Health   *HealthHandler
	Accounts *AccountHandler
	Images   *ImageHandler
	Auth     middleware.BasicAuthConfig
	// MaxBodySize caps request bodies in bytes; 0 disables the cap.
	MaxBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
// There is deliberately no handler at "/": any request to the root path
// falls through to the 404 handler.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	h := New()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	if cfg.MaxBodySize > 0 {
		r.Use(chimiddleware.RequestSize(cfg.MaxBodySize))
	}

	// Health endpoint (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)

	// Account creation is the only unauthenticated account route.
	r.Post("/v1/user", cfg.Accounts.Create)

	// Everything under /v1/user/self requires Basic auth. The auth
	// middleware runs before method dispatch, so an unauthenticated
	// request to an unsupported method gets 401, not 405.
	r.Route("/v1/user/self", func(r chi.Router) {
		r.Use(middleware.BasicAuth(cfg.Auth))

		r.Get("/", cfg.Accounts.GetSelf)
		r.Put("/", cfg.Accounts.UpdateSelf)

		if cfg.Images != nil {
			r.Post("/pic", cfg.Images.Upload)
			r.Get("/pic", cfg.Images.Get)
			r.Delete("/pic", cfg.Images.Delete)
		}

		r.NotFound(h.NotFound)
		r.MethodNotAllowed(h.MethodNotAllowed)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
