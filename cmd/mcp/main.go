package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/cleanlight/instant-sme/internal/adapters/mcp"
	"github.com/cleanlight/instant-sme/internal/bootstrap"
	"github.com/cleanlight/instant-sme/internal/config"
	"github.com/cleanlight/instant-sme/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// stdout carries the MCP transport, so logs go to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "instant-sme-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Answers, app.Hints, version, logger)
	logger.Info("mcp_serving_stdio")
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
