// Package router wires the HTTP routes and middleware chain.
package router

import (
	"net/http"

	"shopledger/internal/handler"
	"shopledger/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	certificateHandler *handler.CertificateHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Prometheus scrape endpoint (no authentication required)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Order routes
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.HandleFunc("PATCH /api/orders/{id}", orderHandler.Patch)
	mux.HandleFunc("POST /api/orders/{id}/finalize", orderHandler.Finalize)
	mux.HandleFunc("POST /api/orders/{id}/recalculate", orderHandler.Recalculate)

	// Certificate routes
	mux.HandleFunc("POST /api/certificates", certificateHandler.Issue)
	mux.HandleFunc("POST /api/certificates/validate", certificateHandler.Validate)
	mux.HandleFunc("GET /api/certificates/{code}", certificateHandler.GetByCode)

	// Apply middleware in order:
	// Recovery -> CorrelationID -> Logging -> Metrics -> CORS -> APIKeyAuth
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Metrics(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CorrelationID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
