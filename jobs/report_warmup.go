package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rentdash/rentdash/internal/jobs"
	"github.com/rentdash/rentdash/internal/reporting"
)

const warmupOwnerTimeout = 20 * time.Second

// ReportWarmer computes and caches the summaries a dashboard opens with.
type ReportWarmer interface {
	Overview(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) (reporting.Overview, error)
	Trends(ctx context.Context, scope reporting.Scope, req reporting.PeriodRequest) (reporting.Trends, error)
}

// OwnerLister enumerates the owners to warm.
type OwnerLister interface {
	OwnerIDs(ctx context.Context) ([]string, error)
}

// ReportWarmupJob pre-populates the report cache for every owner portfolio.
type ReportWarmupJob struct {
	Reports     ReportWarmer
	Owners      OwnerLister
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	PeriodTypes []reporting.PeriodType
	Count       int
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports ReportWarmer, owners OwnerLister, logger *slog.Logger, metrics *jobmetrics.Metrics, count int) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports:     reports,
		Owners:      owners,
		Logger:      logger,
		Metrics:     metrics,
		PeriodTypes: []reporting.PeriodType{reporting.PeriodMonthly, reporting.PeriodQuarterly},
		Count:       count,
	}
}

// Handle processes warmup tasks. A failing owner does not stop the others; the
// task fails when any owner failed so Asynq retries it.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil || j.Owners == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("report warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	types, err := j.periodTypes(payload.PeriodTypes)
	if err != nil {
		return fmt.Errorf("report warmup: %w: %w", err, asynq.SkipRetry)
	}
	count := payload.Count
	if count <= 0 {
		count = j.Count
	}
	if count <= 0 {
		count = 6
	}

	tracker := j.Metrics.Track(TaskReportWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	start := time.Now()
	owners := payload.OwnerIDs
	if len(owners) == 0 {
		owners, err = j.Owners.OwnerIDs(ctx)
		if err != nil {
			logger.Error("load warmup owners", slog.Any("error", err))
			return err
		}
	}
	if len(owners) == 0 {
		logger.Info("no owners discovered for warmup")
		return nil
	}
	logger.Info("starting report warmup", slog.Int("owners", len(owners)), slog.Int("count", count))

	var failures []error
	warmed := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		if err := j.warmOwner(ctx, owner, types, count); err != nil {
			logger.Error("warm owner", slog.String("owner_id", owner), slog.Any("error", err))
			failures = append(failures, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		warmed++
	}
	j.Metrics.AddWarmed("overview", warmed*len(types))

	logger.Info("completed report warmup",
		slog.Int("owners", warmed),
		slog.Int("failed", len(failures)),
		slog.Duration("duration", time.Since(start)),
	)
	return errors.Join(failures...)
}

func (j *ReportWarmupJob) warmOwner(ctx context.Context, owner string, types []reporting.PeriodType, count int) error {
	ownerCtx, cancel := context.WithTimeout(ctx, warmupOwnerTimeout)
	defer cancel()

	scope := reporting.AllProperties(owner)
	for _, pt := range types {
		req := reporting.PeriodRequest{Type: pt, Count: count}
		if _, err := j.Reports.Overview(ownerCtx, scope, req); err != nil {
			return err
		}
		if _, err := j.Reports.Trends(ownerCtx, scope, req); err != nil {
			return err
		}
	}
	return nil
}

func (j *ReportWarmupJob) periodTypes(raw []string) ([]reporting.PeriodType, error) {
	if len(raw) == 0 {
		if len(j.PeriodTypes) == 0 {
			return []reporting.PeriodType{reporting.PeriodMonthly}, nil
		}
		return j.PeriodTypes, nil
	}
	types := make([]reporting.PeriodType, 0, len(raw))
	for _, r := range raw {
		pt, err := reporting.ParsePeriodType(r)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)
	}
	return types, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

// CacheBumper invalidates cached summaries.
type CacheBumper interface {
	BumpCache(ctx context.Context) error
}

// CacheBumpJob handles TaskReportCacheBump, typically enqueued after a data import.
type CacheBumpJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle bumps the cache version.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("cache bump: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskReportCacheBump)
	defer func() { err = tracker.End(err) }()

	if err := j.Cache.BumpCache(ctx); err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("report cache bumped", slog.String("job", TaskReportCacheBump), slog.String("reason", payload.Reason))
	return nil
}
