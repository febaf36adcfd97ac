// The agent probes its configured targets on a fixed interval and
// reports each batch to a remote collector.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/config"
	"github.com/netradar/netradar/internal/logging"
	"github.com/netradar/netradar/internal/probe"
	"github.com/netradar/netradar/internal/report"
	"github.com/netradar/netradar/internal/scheduler"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.CollectorURL == "" {
		logger.Fatal("collector_url_missing")
	}
	if len(cfg.Targets) == 0 {
		logger.Fatal("no_targets_configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probes := probe.DefaultSet()
	probes.HTTP = probe.NewHTTPChecker(cfg.TLSVerification())

	reporter := report.New(logger, cfg.CollectorURL, cfg.AgentID, cfg.APIKey)
	runner := scheduler.NewRunner(logger, cfg.AgentID, cfg.Targets,
		probes, reporter, cfg.CheckInterval(), cfg.Concurrency)

	logger.Info("agent_started",
		zap.String("agent_id", cfg.AgentID),
		zap.String("collector_url", cfg.CollectorURL),
		zap.Int("targets", len(cfg.Targets)),
	)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("agent_failed", zap.Error(err))
	}
	logger.Info("agent_stopped")
}
