package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/bookgraph/internal/app"
	"github.com/OFFIS-RIT/bookgraph/internal/server"
	"github.com/OFFIS-RIT/bookgraph/internal/util"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.ConfigFromEnv()
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	}))

	a, err := app.New(ctx, cfg, app.Options{WithDispatcher: true})
	if err != nil {
		logger.Fatal("Failed to initialize", "err", err)
	}
	defer a.Close()

	if err := server.Run(ctx, a); err != nil {
		logger.Error("Server stopped", "err", err)
	}
	logger.Info("Shutdown signal received, waiting for running analyses...")
}
