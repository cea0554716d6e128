package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/memorylane/internal/cache"
	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/internal/database"
	"github.com/nikhilbhutani/memorylane/internal/embedding"
	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/media"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/probe"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/stt"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/tts"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/queue"
	"github.com/nikhilbhutani/memorylane/internal/queue/workers"
	"github.com/nikhilbhutani/memorylane/internal/storage"
	"github.com/nikhilbhutani/memorylane/internal/story"
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		slog.Error("storage unavailable", "error", err)
		os.Exit(1)
	}

	gw := llm.NewGateway(cfg.LLM)
	prober := probe.New(probe.Config{FFprobePath: cfg.Media.FFprobePath, FFmpegPath: cfg.Media.FFmpegPath})

	transcriber := stt.New(cfg.STT.Backend,
		stt.OpenAISTTConfig{APIKey: cfg.STT.OpenAIKey, BaseURL: cfg.STT.OpenAIBaseURL, Model: cfg.STT.OpenAIModel},
		stt.LocalSTTConfig{BaseURL: cfg.STT.LocalBaseURL},
	)

	processor := pipeline.NewProcessor(pipeline.Deps{
		Store:       media.NewPgRepository(db),
		Locker:      cache.NewRedisLocker(rdb),
		URLs:        store,
		Inspector:   prober,
		Frames:      prober,
		Transcriber: transcriber,
		Vision:      multimodal.NewVisionService(gw, cfg.Vision.Provider, cfg.Vision.Model),
		Embedder:    embedding.NewService(gw, cfg.Embedding.Provider, cfg.Embedding.Model),
		Config:      cfg.Pipeline,
	})

	narration := story.NewNarrationService(story.NewPgRepository(db), narrator(cfg.TTS), store, cfg.Story.Voice)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueDefault: 3,
				queue.QueueLow:     1,
			},
			ShutdownTimeout: 30 * time.Second,
		},
	)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeFileProcess, workers.NewFileProcessWorker(processor))
	registry.Register(queue.TypeStoryNarrate, workers.NewStoryNarrateWorker(narration))

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	srv.Stop()
	// interrupted runs record their failure on the way out
	if n := processor.Registry().CancelAll(); n > 0 {
		slog.Info("cancelled in-flight runs", "count", n)
	}
	srv.Shutdown()
	slog.Info("worker stopped")
}

// narrator orders the speech backends so the configured one is tried first.
func narrator(cfg config.TTSConfig) *tts.Narrator {
	openai := tts.NewOpenAITTS(tts.OpenAITTSConfig{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})

	var providers []tts.TTSProvider
	var local tts.TTSProvider
	if cfg.LocalModel != "" {
		local = tts.NewLocalTTS(tts.LocalTTSConfig{PiperBinPath: cfg.LocalBinPath, ModelPath: cfg.LocalModel})
	}
	switch {
	case cfg.Backend == "local" && local != nil:
		providers = append(providers, local, openai)
	case local != nil:
		providers = append(providers, openai, local)
	default:
		providers = append(providers, openai)
	}
	return tts.NewNarrator(providers...)
}
