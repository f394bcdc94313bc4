package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	db     HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// Healthz is the liveness probe.
//
// GET /healthz
//
// Requests carrying a body or any query parameter are rejected before the
// database is consulted. Every response, on every branch, carries the
// caching-suppression headers.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	setNoCacheHeaders(w)

	if r.ContentLength > 0 || len(r.URL.Query()) > 0 {
		h.logger.Warn("malformed health check request",
			slog.Int64("content_length", r.ContentLength),
			slog.String("query", r.URL.RawQuery),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("database connectivity check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}
