package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clevermock-web/internal/config"
	"clevermock-web/internal/messaging"
	"clevermock-web/internal/notification"
	"clevermock-web/internal/observability"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting mail worker")

	if cfg.RabbitMQURL == "" {
		slog.Error("RABBITMQ_URL is required for the mail worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
	rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
	rmqCancel()
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	slog.Info("connected to rabbitmq")

	deliveries, err := rmq.ConsumeConfirmations()
	if err != nil {
		slog.Error("failed to start consuming", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mailer := notification.NewMailer(cfg.Email)
	consumer := messaging.NewConfirmationConsumer(deliveries, mailer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(ctx)
	}()

	slog.Info("mail worker is ready to send confirmations")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("shutting down mail worker")
	case <-done:
		slog.Warn("delivery channel closed, shutting down mail worker")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("confirmation in flight did not finish before shutdown")
	}

	slog.Info("mail worker stopped")
}
