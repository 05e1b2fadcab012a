// Package httptransport assembles the HTTP surface: middleware stack, domain
// routes, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voicegate/internal/platform/middleware"
	"voicegate/internal/transport/http/shared"
	"voicegate/internal/voiceprint/handler"
)

const (
	requestTimeout = 90 * time.Second

	// Largest accepted request: the audio upload limit plus multipart
	// framing and the other form fields.
	maxRequestBody = 12 << 20
)

// HealthChecker reports readiness of a backing dependency. A nil checker is
// treated as healthy, which covers the database-less mode.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(vp *handler.Handler, db HealthChecker, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.BodyLimit(maxRequestBody))
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/v1/voiceprint", vp.Register)

	r.Get("/health", handleHealth(db))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}

func handleHealth(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		httpStatus := http.StatusOK
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
			}
		}
		shared.WriteJSON(w, httpStatus, map[string]string{
			"status":  status,
			"service": "voicegate",
		})
	}
}
