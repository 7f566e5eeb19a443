package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/api"
	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/config"
	"github.com/scrd/availability-crawler/internal/crawler"
	"github.com/scrd/availability-crawler/internal/logging"
	"github.com/scrd/availability-crawler/internal/resolver"
	"github.com/scrd/availability-crawler/internal/session"
	"github.com/scrd/availability-crawler/internal/sites"
	"github.com/scrd/availability-crawler/internal/store"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one sweep over every enabled site.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context())
		},
	}
}

// runCrawl performs one full crawl cycle. Errors returned here mean the run
// could not start; per-site and per-unit failures during the run are logged
// and counted but never surface as a process failure.
func runCrawl(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("entries", cat.Len()))

	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := api.NewServer(logger)
		go func() {
			if err := srv.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics listener failed", zap.Error(err))
			}
		}()
		logger.Info("metrics listener up", zap.String("addr", cfg.Metrics.Addr))
	}

	var snapshots crawler.SnapshotSink
	if cfg.Snapshots.Enabled {
		sink, err := crawler.NewFileSnapshotSink(cfg.Snapshots.Dir, cfg.Snapshots.MaxBytes, logger)
		if err != nil {
			logger.Warn("snapshot sink unavailable", zap.Error(err))
		} else {
			snapshots = sink
		}
	}

	tasks, err := buildTasks(cfg, cat, st, logger)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		logger.Warn("no sites enabled, nothing to crawl")
		return nil
	}

	dialer := session.NewDialer(logger)
	defer dialer.Close()

	start := time.Now()
	results := crawler.NewOrchestrator(dialer, snapshots, logger).Run(ctx, tasks)
	reportRun(logger, results, time.Since(start))
	return nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			TTL:      cfg.TTL,
			MaxConns: cfg.MaxConns,
		})
	default:
		return store.NewMemoryStore(cfg.TTL), nil
	}
}

// buildTasks assembles one crawl task per enabled site, in name order so runs
// are reproducible. A site with no catalog entries is a configuration error:
// nothing it scrapes could ever resolve.
func buildTasks(
	cfg config.Config,
	cat *catalog.Catalog,
	st store.Store,
	logger *zap.Logger,
) ([]crawler.Task, error) {
	names := make([]string, 0, len(cfg.Sites))
	for name, site := range cfg.Sites {
		if site.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	tasks := make([]crawler.Task, 0, len(names))
	for _, name := range names {
		siteCfg := cfg.Sites[name]
		entries := cat.Site(name)
		if len(entries) == 0 {
			return nil, fmt.Errorf("site %s is enabled but the catalog has no entries for it", name)
		}

		adapter, err := sites.Build(name, siteCfg, entries, logger)
		if err != nil {
			return nil, err
		}
		res := resolver.New(entries, siteCfg.SimilarityThreshold, logger)
		tasks = append(tasks, crawler.Task{
			Adapter: adapter,
			Profile: session.Profile{
				Site:          name,
				Family:        siteCfg.Family,
				UserAgent:     cfg.Crawl.UserAgent,
				WaitTimeout:   siteCfg.SiteWaitTimeout(),
				SettleDelay:   siteCfg.SettleDelay,
				RatePerSecond: siteCfg.RatePerSecond,
			},
			Sink: crawler.NewIngestor(res, st, logger),
			Days: cfg.Crawl.Days,
		})
	}
	return tasks, nil
}

func reportRun(logger *zap.Logger, results []crawler.TaskResult, elapsed time.Duration) {
	var total crawler.UnitCounters
	failed := 0
	for _, r := range results {
		total.Add(r.Counters)
		if r.Status == crawler.TaskFailed {
			failed++
			logger.Error("site task failed",
				zap.String("site", r.Site),
				zap.String("task_id", r.TaskID),
				zap.Error(r.Err),
			)
			continue
		}
		logger.Info("site task summary",
			zap.String("site", r.Site),
			zap.Int("units_attempted", r.Counters.UnitsAttempted),
			zap.Int("units_succeeded", r.Counters.UnitsSucceeded),
			zap.Int("units_skipped", r.Counters.UnitsSkipped),
			zap.Int("records_written", r.Counters.RecordsWritten),
			zap.Int("unmatched", r.Counters.Unmatched),
			zap.Int("write_failures", r.Counters.WriteFailures),
			zap.Duration("duration", r.Duration),
		)
	}
	logger.Info("crawl run complete",
		zap.Int("sites", len(results)),
		zap.Int("sites_failed", failed),
		zap.Int("records_written", total.RecordsWritten),
		zap.Int("unmatched", total.Unmatched),
		zap.Duration("elapsed", elapsed),
	)
}
