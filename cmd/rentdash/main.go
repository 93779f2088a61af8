package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rentdash/rentdash/cmd/rentdash/cli"
	"github.com/rentdash/rentdash/internal/app"
	"github.com/rentdash/rentdash/internal/observability"
	"github.com/rentdash/rentdash/internal/platform/cache"
	"github.com/rentdash/rentdash/internal/platform/db"
	"github.com/rentdash/rentdash/internal/reporting"
	reporthttp "github.com/rentdash/rentdash/internal/reporting/http"
	"github.com/rentdash/rentdash/internal/reporting/pgstore"
	"github.com/rentdash/rentdash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("report timezone", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Reports still work uncached; the health check reports the outage.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL).
		WithMetrics(reporting.NewCacheMetrics(metrics.Registerer()))
	if err := reportCache.ListenForInvalidation(ctx, reporting.BumpChannel); err != nil {
		logger.Warn("subscribe cache invalidation", slog.Any("error", err))
	}
	reportService := reporting.NewService(pgstore.New(dbpool), reporting.NewPeriodCalculator(loc), reportCache)
	reportHandler := reporthttp.NewHandler(logger, reportService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pingPostgres(dbpool),
			"redis": func(ctx context.Context) error {
				return cache.Ping(ctx, redisClient)
			},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func pingPostgres(pool *pgxpool.Pool) app.HealthCheck {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// runJobs handles `rentdash jobs trigger <warmup|cache-bump>` and `rentdash jobs stats`.
func runJobs(cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rentdash jobs <trigger|stats> [flags]")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		owners := fs.String("owners", "", "comma separated owner ids, empty for all")
		periods := fs.String("periods", "", "comma separated period types")
		count := fs.Int("count", 0, "periods per series")
		reason := fs.String("reason", "", "cache bump reason")
		if len(args) < 2 {
			return errors.New("usage: rentdash jobs trigger <warmup|cache-bump> [flags]")
		}
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		info, err := jobsCLI.Trigger(ctx, args[1], cli.TriggerOptions{
			Owners:  split(*owners),
			Periods: split(*periods),
			Count:   *count,
			Reason:  *reason,
		})
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		queues, err := jobsCLI.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, stats := range queues {
			fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		}
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}

func split(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
