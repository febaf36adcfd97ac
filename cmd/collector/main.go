// The collector receives check batches from agents, persists them, and
// serves the read API. With targets configured it also probes locally,
// so a single binary covers the standalone setup.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netradar/netradar/internal/config"
	"github.com/netradar/netradar/internal/httpapi"
	"github.com/netradar/netradar/internal/ingest"
	"github.com/netradar/netradar/internal/logging"
	"github.com/netradar/netradar/internal/notify"
	"github.com/netradar/netradar/internal/probe"
	"github.com/netradar/netradar/internal/query"
	"github.com/netradar/netradar/internal/retention"
	"github.com/netradar/netradar/internal/scheduler"
	"github.com/netradar/netradar/internal/store"
	"github.com/netradar/netradar/internal/store/memory"
	"github.com/netradar/netradar/internal/store/postgres"
	"github.com/netradar/netradar/internal/store/sqlite"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	var notifier notify.Notifier
	if wh := notify.NewWebhook(cfg.WebhookURL); wh != nil {
		notifier = wh
	}

	ing := ingest.New(logger, st, notifier)
	queries := query.NewService(st, cfg.Targets)
	api := httpapi.NewServer(logger, ing, queries, cfg.APIKey)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	g.Go(func() error {
		sweeper := retention.NewSweeper(logger, st, cfg.RetentionHorizon())
		return sweeper.Run(gctx)
	})

	if len(cfg.Targets) > 0 {
		probes := probe.DefaultSet()
		probes.HTTP = probe.NewHTTPChecker(cfg.TLSVerification())
		runner := scheduler.NewRunner(logger, ingest.LocalAgentID, cfg.Targets,
			probes, ing, cfg.CheckInterval(), cfg.Concurrency)
		g.Go(func() error {
			return runner.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("collector_failed", zap.Error(err))
	}
	logger.Info("collector_stopped")
}

// openStore picks the backend by configuration precedence: postgres when
// database_url is set, sqlite when db_path is set, memory otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case cfg.DBPath != "":
		return sqlite.Open(ctx, cfg.DBPath, logger)
	default:
		logger.Warn("memory_store_in_use", zap.String("hint", "set db_path or database_url to persist checks"))
		return memory.New(), nil
	}
}
