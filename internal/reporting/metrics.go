package reporting

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics observes the summary cache.
type CacheMetrics struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCacheMetrics registers the collectors against reg, or the default registerer when nil.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &CacheMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdash_report_cache_hits_total",
			Help: "Report summaries served from cache.",
		}, []string{"report"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentdash_report_cache_misses_total",
			Help: "Report summaries computed because the cache had no entry.",
		}, []string{"report"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentdash_report_build_duration_seconds",
			Help:    "Time spent computing report summaries on a cache miss.",
			Buckets: prometheus.DefBuckets,
		}, []string{"report"}),
	}
	reg.MustRegister(m.hits, m.misses, m.duration)
	return m
}

func (m *CacheMetrics) hit(report string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(report).Inc()
}

func (m *CacheMetrics) miss(report string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(report).Inc()
}

func (m *CacheMetrics) observeBuild(report string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(report).Observe(d.Seconds())
}
