package reporthttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the report endpoints. exportPerMinute bounds CSV exports per caller.
func (h *Handler) MountRoutes(r chi.Router, exportPerMinute int) {
	if h == nil {
		return
	}
	if exportPerMinute <= 0 {
		exportPerMinute = 10
	}
	limiter := httprate.Limit(exportPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/financial", h.handleFinancial)
		rr.Get("/maintenance", h.handleMaintenance)
		rr.Get("/contracts", h.handleContracts)
		rr.Get("/occupancy", h.handleOccupancy)
		rr.Get("/overview", h.handleOverview)
		rr.Get("/trends", h.handleTrends)
		rr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleCSV)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
		return "owner:" + owner, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
