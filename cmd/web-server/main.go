package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/config"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/handler"
	"clevermock-web/internal/messaging"
	"clevermock-web/internal/notification"
	"clevermock-web/internal/observability"
	mongorepo "clevermock-web/internal/repository/mongo"
	"clevermock-web/internal/repository/postgres"
	"clevermock-web/internal/service"
	"clevermock-web/internal/session"
	"clevermock-web/internal/websocket"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting web server",
		slog.String("environment", cfg.Environment),
		slog.String("backend", cfg.BackendAPIURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handler.Check{}

	connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connCancel()

	backend, closeBackend, err := openSessionBackend(connCtx, cfg)
	if err != nil {
		slog.Error("failed to open session backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeBackend()
	checks["sessions"] = backend.Ping

	waitlistRepo, closeStore, err := openWaitlistStore(connCtx, cfg)
	if err != nil {
		slog.Error("failed to open waitlist store",
			slog.String("store", cfg.WaitlistStore),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	var notifier domain.WaitlistNotifier
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
		rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
		rmqCancel()
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()
		notifier = rmq
		checks["rabbitmq"] = rmq.Ping
		slog.Info("confirmation emails queued through rabbitmq")
	} else {
		notifier = notification.NewMailer(cfg.Email)
		slog.Info("RABBITMQ_URL not set, confirmation emails are sent inline")
	}

	sessions := session.NewManager(backend, cfg.SecureCookies())
	api := apiclient.New(cfg.BackendAPIURL)
	waitlistService := service.NewWaitlistService(waitlistRepo, notifier)
	checks["waitlist"] = waitlistService.Ready

	hub := websocket.NewHub()
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("interview hub started")

	router, stopLimiters := newRouter(ctx, app{
		cfg:      cfg,
		sessions: sessions,
		api:      api,
		waitlist: waitlistService,
		hub:      hub,
		checks:   checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("web server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	// Ends every interview screen; hijacked connections are not covered by
	// Shutdown.
	cancel()
	stopLimiters()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// openSessionBackend uses Redis when REDIS_URL is set and process memory
// otherwise.
func openSessionBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, session state is kept in memory")
		return session.NewMemoryBackend(), func() {}, nil
	}

	client, err := config.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("connected to redis")

	return session.NewRedisBackend(client), func() { client.Close() }, nil
}

func openWaitlistStore(ctx context.Context, cfg *config.Config) (domain.WaitlistRepository, func(), error) {
	switch cfg.WaitlistStore {
	case config.StorePostgres:
		db, err := config.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewWaitlistRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("connected to postgresql")
		return repo, func() { db.Close() }, nil

	case config.StoreMongo:
		client, err := config.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := mongorepo.NewWaitlistRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		slog.Info("connected to mongodb", slog.String("database", cfg.MongoDatabase))
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}

	return nil, nil, fmt.Errorf("unknown waitlist store %q", cfg.WaitlistStore)
}
