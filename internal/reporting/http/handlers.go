// Package reporthttp serves reporting summaries over HTTP.
package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentdash/rentdash/internal/platform/httpx"
	"github.com/rentdash/rentdash/internal/reporting"
	"github.com/rentdash/rentdash/internal/reporting/export"
)

// OwnerHeader carries the caller identity set by the upstream gateway.
const OwnerHeader = "X-Owner-ID"

const (
	defaultPeriodCount = 6
	requestTimeout     = 5 * time.Second
)

// ReportService is the reporting contract consumed by the handler.
type ReportService interface {
	Financial(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) ([]reporting.FinancialSummary, error)
	Maintenance(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) ([]reporting.MaintenanceSummary, error)
	Contracts(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) ([]reporting.ContractSummary, error)
	Occupancy(ctx context.Context, scope reporting.Scope) (reporting.OccupancySummary, error)
	Overview(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) (reporting.Overview, error)
	Trends(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) (reporting.Trends, error)
}

// Handler exposes the report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	validate *validator.Validate
	csvPool  sync.Pool
}

// NewHandler constructs the reporting HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type reportQuery struct {
	OwnerID    string `validate:"required,uuid"`
	PropertyID string `validate:"required_with=RoomID,omitempty,uuid"`
	RoomID     string `validate:"omitempty,uuid"`
	Period     string `validate:"omitempty,oneof=WEEKLY MONTHLY QUARTERLY YEARLY"`
	Count      int    `validate:"gte=1,lte=120"`
	Year       int    `validate:"omitempty,gte=1970,lte=9999"`
	Month      int    `validate:"omitempty,gte=1,lte=12"`
	Quarter    int    `validate:"omitempty,gte=1,lte=4"`
	Report     string `validate:"omitempty,oneof=financial maintenance contracts occupancy"`
}

func (q reportQuery) scope() reporting.Scope {
	return reporting.ScopeFromParams(q.OwnerID, q.PropertyID, q.RoomID)
}

func (q reportQuery) periodRequest() reporting.PeriodRequest {
	req := reporting.PeriodRequest{Type: reporting.PeriodType(q.Period), Count: q.Count}
	if req.Type == "" {
		req.Type = reporting.PeriodMonthly
	}
	if q.Year != 0 || q.Month != 0 || q.Quarter != 0 {
		req.Filter = &reporting.DateFilter{Year: q.Year, Month: q.Month, Quarter: q.Quarter}
	}
	return req
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

func (h *Handler) parseQuery(r *http.Request) (reportQuery, error) {
	values := r.URL.Query()
	q := reportQuery{
		OwnerID:    strings.TrimSpace(r.Header.Get(OwnerHeader)),
		PropertyID: strings.TrimSpace(values.Get("propertyId")),
		RoomID:     strings.TrimSpace(values.Get("roomId")),
		Period:     strings.ToUpper(strings.TrimSpace(values.Get("period"))),
		Count:      defaultPeriodCount,
		Report:     strings.ToLower(strings.TrimSpace(values.Get("report"))),
	}
	if q.OwnerID == "" {
		return reportQuery{}, httpx.ErrUnauthorized
	}
	ints := []struct {
		name string
		dest *int
	}{
		{"count", &q.Count},
		{"year", &q.Year},
		{"month", &q.Month},
		{"quarter", &q.Quarter},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return reportQuery{}, validationError{field: p.name}
		}
		*p.dest = n
	}
	if err := h.validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return reportQuery{}, validationError{field: fieldErrs[0].Field()}
		}
		return reportQuery{}, err
	}
	return q, nil
}

func (h *Handler) handleFinancial(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	series, err := h.service.Financial(ctx, q.scope(), q.periodRequest())
	h.respond(w, "financial", series, err)
}

func (h *Handler) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	series, err := h.service.Maintenance(ctx, q.scope(), q.periodRequest())
	h.respond(w, "maintenance", series, err)
}

func (h *Handler) handleContracts(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	series, err := h.service.Contracts(ctx, q.scope(), q.periodRequest())
	h.respond(w, "contracts", series, err)
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	snapshot, err := h.service.Occupancy(ctx, q.scope())
	h.respond(w, "occupancy", snapshot, err)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	overview, err := h.service.Overview(ctx, q.scope(), q.periodRequest())
	h.respond(w, "overview", overview, err)
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()
	trends, err := h.service.Trends(ctx, q.scope(), q.periodRequest())
	h.respond(w, "trends", trends, err)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	report := q.Report
	if report == "" {
		report = export.ReportFinancial
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	var err error
	switch report {
	case export.ReportFinancial:
		var series []reporting.FinancialSummary
		if series, err = h.service.Financial(ctx, q.scope(), q.periodRequest()); err == nil {
			err = export.WriteFinancialCSV(buf, series)
		}
	case export.ReportMaintenance:
		var series []reporting.MaintenanceSummary
		if series, err = h.service.Maintenance(ctx, q.scope(), q.periodRequest()); err == nil {
			err = export.WriteMaintenanceCSV(buf, series)
		}
	case export.ReportContracts:
		var series []reporting.ContractSummary
		if series, err = h.service.Contracts(ctx, q.scope(), q.periodRequest()); err == nil {
			err = export.WriteContractCSV(buf, series)
		}
	case export.ReportOccupancy:
		var snapshot reporting.OccupancySummary
		if snapshot, err = h.service.Occupancy(ctx, q.scope()); err == nil {
			err = export.WriteOccupancyCSV(buf, snapshot)
		}
	}
	if err != nil {
		h.respondError(w, "export "+report, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", report, strings.ToLower(string(q.periodRequest().Type)))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

// begin parses the request and derives the bounded context. ok is false when a
// response has already been written.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (reportQuery, context.Context, context.CancelFunc, bool) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.respondError(w, "parse query", err)
		return reportQuery{}, nil, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	return q, ctx, cancel, true
}

func (h *Handler) respond(w http.ResponseWriter, report string, body any, err error) {
	if err != nil {
		h.respondError(w, "load "+report, err)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var vErr validationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, reporting.ErrInvalidParameter):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, reporting.ErrScopeNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, httpx.ErrUnauthorized):
		httpx.RespondError(w, fmt.Errorf("%w: missing %s header", httpx.ErrUnauthorized, OwnerHeader))
	case errors.Is(err, reporting.ErrDataUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
