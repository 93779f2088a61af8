package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentdash/rentdash/internal/observability"
)

// newMetricsServer exposes the worker registry for scraping. The worker has no
// other HTTP surface.
func newMetricsServer(addr string, metrics *observability.Metrics) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
