package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/dialoguegen/internal/config"
	"github.com/apresai/dialoguegen/internal/mcpserver"
	"github.com/apresai/dialoguegen/internal/observability"
)

var version = "dev"

func main() {
	// stdout carries the protocol, so bootstrap errors go to stderr
	boot := observability.InitLogger(os.Stderr, slog.LevelInfo, "json")

	cfg, err := config.Load()
	if err != nil {
		boot.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		boot.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	logger := observability.InitLogger(os.Stderr, level, "json")

	logger.Info("Dialoguegen MCP Server starting...", "version", version, "output_dir", cfg.OutputDir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer := func() {}
	tp, err := observability.InitTracer(ctx, "dialoguegen-mcp", version, cfg.Tracing)
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		shutdownTracer = func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Tracer shutdown error", "error", err)
			}
		}
	}
	defer shutdownTracer()

	srv, err := mcpserver.New(ctx, cfg, version, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownTracer()
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
