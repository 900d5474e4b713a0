package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/activity"
	"github.com/PattaFeuFeu/Vernissage/internal/api"
	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/ingest"
	"github.com/PattaFeuFeu/Vernissage/internal/logging"
	"github.com/PattaFeuFeu/Vernissage/internal/metrics"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
	"github.com/PattaFeuFeu/Vernissage/internal/sizecache"
	"github.com/PattaFeuFeu/Vernissage/internal/storage"
	"github.com/PattaFeuFeu/Vernissage/internal/tracker"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "vernissage.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("vernissaged", version)
		return
	}

	cfgManager, err := config.NewManager(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage open failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.Init(initCtx); err != nil {
		cancel()
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	cancel()

	sizes := sizecache.New(
		sizecache.WithTTL(cfg.SizeCache.TTL()),
		sizecache.WithCompactThreshold(cfg.SizeCache.CompactThreshold),
	)
	activityStore := activity.NewStore(1000)
	metricsStore := metrics.NewStore(5000)
	tr := tracker.New(store, logger,
		tracker.WithRetentionMonths(cfg.Tracker.RetentionMonths),
		tracker.WithActivity(activityStore),
		tracker.WithMetrics(metricsStore),
	)

	tr.StartPurgeLoop(ctx, cfg.Tracker.PurgeInterval())

	events := make(chan model.SeenEvent, cfg.Ingest.ChannelBuffer)
	ingest.StartRecorder(ctx, events, tr)
	ingest.StartKafka(ctx, cfgManager, events, logger)

	api.Start(ctx, cfgManager, sizes, tr, activityStore, metricsStore, logger, version)

	go cfgManager.Watch(3*time.Second,
		func(next *config.Config) {
			logger.Info("config reloaded", "path", cfgManager.Path())
		},
		func(err error) {
			logger.Warn("config reload failed", "err", err)
		},
		ctx.Done(),
	)

	logger.Info("vernissaged started",
		"version", version,
		"storage_driver", cfg.Storage.Driver,
		"size_cache_ttl", cfg.SizeCache.TTL().String(),
		"retention_months", cfg.Tracker.RetentionMonths,
	)

	<-ctx.Done()
	logger.Info("shutting down")
}
