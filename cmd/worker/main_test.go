package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdash/rentdash/internal/app"
	jobmetrics "github.com/rentdash/rentdash/internal/jobs"
	"github.com/rentdash/rentdash/internal/observability"
	"github.com/rentdash/rentdash/internal/reporting"
	_ "github.com/rentdash/rentdash/internal/testing/guard"
	"github.com/rentdash/rentdash/jobs"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestMetricsServerExposesJobMetrics(t *testing.T) {
	registry := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(registry.Registerer())
	reporting.NewCacheMetrics(registry.Registerer())

	require.Error(t, metrics.Track(jobs.TaskReportWarmup).End(errors.New("owner failed")))
	require.NoError(t, metrics.Track(jobs.TaskReportWarmup).End(nil))

	srv := newMetricsServer(":0", registry)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `rentdash_jobs_failures_total{job="reporting:warmup"} 1`)
	assert.Contains(t, body, `rentdash_job_last_success_timestamp_seconds{job="reporting:warmup"}`)
}
