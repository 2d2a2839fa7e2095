package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/bookgraph/internal/app"
	"github.com/OFFIS-RIT/bookgraph/internal/queue"
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
		Debug:  cfg.Debug,
		Prefix: "worker",
	}))

	if cfg.TaskAdapter != "redis" {
		logger.Warn("TASK_ADAPTER is not redis, the API server will not see progress of this worker")
	}

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.Fatal("Failed to initialize", "err", err)
	}
	defer a.Close()

	conn, err := queue.Dial(cfg.AMQP)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	if err := queue.NewWorker(conn, a.Runner()).Run(ctx); err != nil {
		logger.Error("Worker stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}
