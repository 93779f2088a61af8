package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries the warmup sweeps.
	QueueDefault = "default"
	// QueueCritical carries cache invalidation, which must not wait behind a sweep.
	QueueCritical = "critical"
	// TaskReportWarmup precomputes report summaries for every owner.
	TaskReportWarmup = "reporting:warmup"
	// TaskReportCacheBump invalidates every cached report summary.
	TaskReportCacheBump = "reporting:cache_bump"
)

// ReportWarmupPayload selects what the warmup computes. Empty fields fall back to
// the job defaults and an empty OwnerIDs means every owner.
type ReportWarmupPayload struct {
	PeriodTypes []string `json:"period_types,omitempty"`
	Count       int      `json:"count,omitempty"`
	OwnerIDs    []string `json:"owner_ids,omitempty"`
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// NewCacheBumpTask constructs an Asynq task.
func NewCacheBumpTask(payload CacheBumpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportCacheBump, data, asynq.MaxRetry(3), asynq.Queue(QueueCritical)), nil
}
