package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"cotflow/config"
	"cotflow/logger"
	"cotflow/processor"
	"cotflow/reader/cftc"
	"cotflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single pipeline pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Cotflow.Name,
		"version":     cfg.Cotflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting cotflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	fetcher := cftc.NewFetcher(cfg)
	pipeline := processor.NewPipeline(cfg, fetcher)

	envelopeWriter, err := writer.NewEnvelopeWriter(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to initialize envelope writer")
		os.Exit(1)
	}

	runOnce := func() {
		envelope := pipeline.Run(ctx)
		if err := envelopeWriter.Write(ctx, envelope); err != nil {
			log.WithComponent("main").WithError(err).Error("failed to persist envelope")
		}
	}

	if *once {
		runOnce()
		return
	}

	if cfg.Schedule.Cron == "" {
		log.WithComponent("main").Info("no schedule configured, running single pass")
		runOnce()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule.Cron, runOnce); err != nil {
		log.WithError(err).Error("Failed to register pipeline schedule")
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.WithComponent("main").WithFields(logger.Fields{"cron": cfg.Schedule.Cron}).Info("pipeline scheduled")

	if cfg.Schedule.RunOnStart {
		go runOnce()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.WithComponent("main").Info("shutdown signal received, stopping")
	cancel()
}
