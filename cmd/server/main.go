package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	_ "github.com/makeasinger/genqueue/docs"
	"github.com/makeasinger/genqueue/internal/client"
	"github.com/makeasinger/genqueue/internal/config"
	"github.com/makeasinger/genqueue/internal/events"
	"github.com/makeasinger/genqueue/internal/handler"
	"github.com/makeasinger/genqueue/internal/middleware"
	"github.com/makeasinger/genqueue/internal/provider"
	"github.com/makeasinger/genqueue/internal/scheduler"
	ws "github.com/makeasinger/genqueue/internal/websocket"
	"github.com/makeasinger/genqueue/internal/worker"
)

// @title          Generation Queue API
// @version        1.0
// @description    Queue and scheduling engine for music generation jobs.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize validator
	validate := validator.New()

	// Audio storage
	store := newAudioStore(cfg)

	checks := map[string]handler.HealthCheck{}

	// Generation backend: the model service when configured, otherwise the
	// in-process simulation
	var (
		loader provider.Loader
		gen    scheduler.GenerationClient
	)
	if cfg.ModelService.URL != "" {
		modelClient := client.NewModelServiceClient(&cfg.ModelService, store)
		loader, gen = modelClient, modelClient
		checks["model_service"] = modelClient.HealthCheck
		slog.Info("Using model service", "url", cfg.ModelService.URL)
	} else {
		sim := client.NewSimulatedBackend(cfg.Simulation.StepDelay, store)
		loader, gen = sim, sim
		slog.Warn("MODEL_SERVICE_URL not set, using simulated generation backend")
	}

	registry, err := provider.NewRegistry(loader, cfg.Providers.Names, cfg.Providers.Default)
	if err != nil {
		slog.Error("Failed to create provider registry", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	opts := []scheduler.Option{
		scheduler.WithPollInterval(cfg.Scheduler.PollInterval),
		scheduler.WithCancelTimeout(cfg.Scheduler.CancelTimeout),
		scheduler.WithMaxPollErrors(cfg.Scheduler.MaxPollErrors),
		scheduler.WithEventBuffer(cfg.Scheduler.EventBuffer),
		scheduler.WithValidator(validate),
		scheduler.WithObserver(hub),
	}
	if store != nil {
		opts = append(opts, scheduler.WithObserver(events.NewAudioJanitor(store)))
	}

	// Redis backs the event feed, shared rate limits and webhook delivery
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis not available", "error", err)
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		opts = append(opts, scheduler.WithObserver(events.NewRedisPublisher(redisClient, "")))

		if cfg.Webhook.Enabled {
			asynqClient := asynq.NewClient(redisOpt(cfg))
			defer asynqClient.Close()
			opts = append(opts, scheduler.WithObserver(events.NewWebhookDispatcher(asynqClient, cfg.Webhook.MaxRetry)))
			go startWorkerServer(ctx, cfg)
		}
	} else if cfg.Webhook.Enabled {
		slog.Warn("Webhooks need Redis; callbacks are disabled")
	}

	engine := scheduler.New(registry, gen, opts...)
	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()
	go engine.RunPruner(ctx, cfg.Scheduler.PruneInterval, cfg.Scheduler.HistoryTTL)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)
	go rateLimiter.Cleanup(ctx)

	// Initialize handlers
	app := handler.NewApp(true)
	routes := &handler.Routes{
		Generation:  handler.NewGenerationHandler(engine, validate),
		Queue:       handler.NewQueueHandler(engine, validate),
		Provider:    handler.NewProviderHandler(engine, validate),
		Audio:       handler.NewAudioHandler(engine, store),
		Health:      handler.NewHealthHandler(engine, checks),
		Stream:      handler.NewStreamHandler(engine, hub),
		SubmitLimit: rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerMin),
	}
	routes.Mount(app)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	slog.Info("Server starting", "addr", addr, "providers", cfg.Providers.Names)
	if err := app.Listen(addr); err != nil {
		slog.Error("Server error", "error", err)
		stop()
	}

	select {
	case <-engineDone:
	case <-time.After(cfg.Scheduler.CancelTimeout + time.Second):
		slog.Warn("Scheduler did not stop in time")
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func asynqLogLevel(s string) asynq.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return asynq.DebugLevel
	case "warn", "warning":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}

// newAudioStore prefers R2 and falls back to the local directory. It
// returns nil only when neither can be set up.
func newAudioStore(cfg *config.Config) client.AudioStore {
	if cfg.R2.AccountID != "" {
		r2, err := client.NewR2Store(&cfg.R2)
		if err == nil {
			slog.Info("Storing audio in R2", "bucket", cfg.R2.BucketName)
			return r2
		}
		slog.Warn("R2 not available, falling back to local storage", "error", err)
	}

	local, err := client.NewLocalStore(cfg.Storage.LocalDir)
	if err != nil {
		slog.Warn("Local audio storage not available", "dir", cfg.Storage.LocalDir, "error", err)
		return nil
	}
	return local
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func startWorkerServer(ctx context.Context, cfg *config.Config) {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				events.WebhookQueue: 1,
			},
			RetryDelayFunc: worker.RetryDelay,
			LogLevel:       asynqLogLevel(cfg.Server.LogLevel),
		},
	)

	webhookWorker := worker.NewWebhookWorker(cfg.Webhook.AllowPrivate)

	mux := asynq.NewServeMux()
	mux.HandleFunc(events.TaskTypeWebhook, webhookWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		slog.Error("Asynq worker error", "error", err)
		return
	}
	<-ctx.Done()
	srv.Shutdown()
}
