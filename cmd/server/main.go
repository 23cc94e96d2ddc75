package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Nertsal/trail-blazer/internal/api"
	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/journal"
	"github.com/Nertsal/trail-blazer/internal/logging"
	"github.com/Nertsal/trail-blazer/internal/match"
)

func main() {
	// .env next to the binary first, then the repository root.
	envErr := godotenv.Load(".env")
	if envErr != nil {
		envErr = godotenv.Load("../.env")
	}

	cfg := config.Load()

	logger, syncLog, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer syncLog()
	if envErr != nil {
		logger.Info("no .env file found, using environment variables only")
	}

	if err := run(cfg, logger); err != nil {
		logger.Errorw("server stopped", "error", err)
		syncLog()
		os.Exit(1)
	}
}

func run(cfg config.AppConfig, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow("trail-blazer starting",
		"port", cfg.Server.Port,
		"tps", cfg.Server.TicksPerSecond,
		"map", [2]int{cfg.Match.MapWidth, cfg.Match.MapHeight},
		"maxPlayers", cfg.Limits.MaxPlayers,
	)

	// The journal always keeps recent events in memory for /api/events;
	// the file is optional.
	var out io.WriteCloser
	if cfg.Journal.Enabled {
		out = journal.OpenFile(cfg.Journal)
	}
	events := journal.New(cfg.Journal, out, logger.Named("journal"))
	events.Start()
	defer events.Stop()
	if err := api.RegisterJournalMetrics(events); err != nil {
		logger.Warnw("journal metrics disabled", "error", err)
	}
	if cfg.Journal.Enabled {
		logger.Infow("event journal enabled", "file", cfg.Journal.File)
	}

	m := match.New(match.NewModel(cfg.Match), match.Options{
		TickInterval: cfg.Server.TickInterval(),
		MaxPlayers:   cfg.Limits.MaxPlayers,
		Journal:      events,
		Metrics:      api.MatchMetrics{},
		Log:          logger.Named("match"),
	})
	matchDone := make(chan error, 1)
	go func() { matchDone <- m.Run(ctx) }()

	debugSrv := api.StartDebugServer(cfg.Debug, logger.Named("debug"))

	srv := api.NewServer(m, events, cfg, logger.Named("api"))
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	var result error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		result = err
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("api shutdown", "error", err)
	}
	if debugSrv != nil {
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("debug server shutdown", "error", err)
		}
	}

	select {
	case err := <-matchDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnw("match stopped", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("match did not stop in time")
	}

	logger.Info("goodbye")
	return result
}
