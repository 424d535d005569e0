package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/soundstack/soundstack/internal/app/metrics"
)

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return metrics.InstrumentHandler(next)
	}
}
