package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/amqp"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/cli"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting wplan-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the forecast worker")
		os.Exit(1)
	}

	repo := cli.InitStorage(logger, cfg)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	forecastWorker := worker.NewForecastWorker(repo)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Consuming import completed messages", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeImportCompleted(ctx, func(msg *amqp.ImportCompletedMessage) error {
		return forecastWorker.HandleImportCompleted(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
