package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/rentdash/rentdash/jobs"
)

// Enqueuer submits report jobs.
type Enqueuer interface {
	EnqueueReportWarmup(ctx context.Context, payload jobs.ReportWarmupPayload) (*asynq.TaskInfo, error)
	EnqueueCacheBump(ctx context.Context, payload jobs.CacheBumpPayload) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for the report jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers against the Redis at redisAddr.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TriggerOptions customise a manual run.
type TriggerOptions struct {
	Owners  []string
	Periods []string
	Count   int
	Reason  string
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts TriggerOptions) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case "warmup", jobs.TaskReportWarmup:
		return c.client.EnqueueReportWarmup(ctx, jobs.ReportWarmupPayload{
			PeriodTypes: upper(opts.Periods),
			Count:       opts.Count,
			OwnerIDs:    opts.Owners,
		})
	case "cache-bump", jobs.TaskReportCacheBump:
		reason := opts.Reason
		if reason == "" {
			reason = "manual"
		}
		return c.client.EnqueueCacheBump(ctx, jobs.CacheBumpPayload{Reason: reason})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueues reports the counters of every worker queue. A queue that has never
// held a task reports zeros.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	out := make([]QueueStats, 0, len(jobs.Queues()))
	for _, queue := range jobs.Queues() {
		stats := QueueStats{Queue: queue}
		info, err := c.inspector.GetQueueInfo(queue)
		switch {
		case errors.Is(err, asynq.ErrQueueNotFound):
		case err != nil:
			return nil, fmt.Errorf("jobs cli: inspect %s: %w", queue, err)
		case info != nil:
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Archived = info.Archived
		}
		out = append(out, stats)
	}
	return out, nil
}

func upper(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, strings.ToUpper(v))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
