// Package jobmetrics instruments background jobs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by every job handler. A nil *Metrics records
// nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	warmed      *prometheus.CounterVec
	now         func() time.Time
}

// NewMetrics registers the collectors on registerer. With a nil registerer the
// collectors still count but are not exported.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return buildMetrics(registerer)
}

// Tracker instruments one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{job: job, start: time.Now()}
	if m != nil {
		t.metrics = m
		t.start = m.now()
	}
	return t
}

// End records the outcome of the run and returns err unchanged so handlers can
// `defer func() { err = tracker.End(err) }()`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	now := m.now()
	m.duration.WithLabelValues(t.job).Observe(now.Sub(t.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(t.job, "failure").Inc()
		m.failures.WithLabelValues(t.job).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, "success").Inc()
	m.lastSuccess.WithLabelValues(t.job).Set(float64(now.Unix()))
	return nil
}

// AddWarmed counts report entries precomputed by a warmup run.
func (m *Metrics) AddWarmed(report string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.warmed.WithLabelValues(report).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdash_jobs_total",
			Help: "Job executions partitioned by job name and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdash_jobs_failures_total",
			Help: "Failed job executions.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "rentdash_job_duration_seconds",
			Help: "Duration of job executions.",
			// A warmup sweeps every owner, so allow for minutes.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rentdash_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		warmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdash_reports_warmed_total",
			Help: "Report cache entries precomputed by warmup jobs.",
		}, []string{"report"}),
		now: time.Now,
	}
	if registerer != nil {
		registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.warmed)
	}
	return m
}
