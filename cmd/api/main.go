package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/memorylane/internal/api"
	"github.com/nikhilbhutani/memorylane/internal/api/handlers"
	"github.com/nikhilbhutani/memorylane/internal/api/middleware"
	"github.com/nikhilbhutani/memorylane/internal/auth"
	"github.com/nikhilbhutani/memorylane/internal/cache"
	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/internal/database"
	"github.com/nikhilbhutani/memorylane/internal/embedding"
	"github.com/nikhilbhutani/memorylane/internal/guardrails"
	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/media"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/queue"
	"github.com/nikhilbhutani/memorylane/internal/storage"
	"github.com/nikhilbhutani/memorylane/internal/story"
	"github.com/nikhilbhutani/memorylane/internal/vectorstore"
	"github.com/nikhilbhutani/memorylane/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, migrations.FS); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, queueing and search cache will fail until it returns", "error", err)
	}
	defer rdb.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		slog.Error("storage unavailable", "error", err)
		os.Exit(1)
	}

	queueClient := queue.NewClient(cfg.Redis, cfg.Pipeline.LockTTL)
	defer queueClient.Close()

	gw := llm.NewGateway(cfg.LLM)
	embedder := embedding.NewService(gw, cfg.Embedding.Provider, cfg.Embedding.Model)
	redisCache := cache.NewCache(rdb)

	fileSvc := media.NewService(media.NewPgRepository(db), store, queueClient, cache.NewRedisLocker(rdb))
	searcher := vectorstore.NewSearcher(vectorstore.NewPgVectorStore(db), embedder, redisCache, embedder.Model())
	storySvc := story.NewService(story.NewPgRepository(db), fileSvc, gw, store, queueClient, coverArtist(cfg),
		story.Config{Provider: cfg.Story.Provider, Model: cfg.Story.Model}).
		WithScreener(guardrails.Default(cfg.Story.MaxPromptChars))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	stopSweep := make(chan struct{})
	defer close(stopSweep)
	go limiter.Run(stopSweep)

	router := api.NewRouter(api.Deps{
		Files:   fileSvc,
		Search:  searcher,
		Stories: storySvc,
		Health: map[string]handlers.Pinger{
			"database": db,
			"redis":    redisCache,
		},
		Auth:      auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		Limiter:   limiter,
		Origins:   cfg.Server.CORSOrigins,
		MaxUpload: cfg.Server.MaxUploadSize,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  5 * time.Minute, // large uploads
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// coverArtist returns nil when no OpenAI key is configured.
func coverArtist(cfg *config.Config) *story.CoverArtist {
	if cfg.LLM.OpenAIKey == "" || len(cfg.Story.CoverModels) == 0 {
		return nil
	}
	var providers []story.ImageProvider
	for _, model := range cfg.Story.CoverModels {
		providers = append(providers, multimodal.NewImageGenerator(multimodal.ImageGenConfig{
			APIKey: cfg.LLM.OpenAIKey,
			Model:  model,
		}))
	}
	return story.NewCoverArtist(providers...)
}
