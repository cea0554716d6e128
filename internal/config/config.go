package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Storage   StorageConfig
	STT       STTConfig
	TTS       TTSConfig
	Vision    VisionConfig
	Embedding EmbeddingConfig
	Media     MediaConfig
	Pipeline  PipelineConfig
	Story     StoryConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadSize  int64
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
}

type StorageConfig struct {
	Backend string // "supabase" or "minio"
	Bucket  string

	SupabaseURL string
	SupabaseKey string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioPublicURL string
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type TTSConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBinPath  string // default: "piper"
	LocalModel    string // required when backend=local
}

type VisionConfig struct {
	Provider string
	Model    string
}

type EmbeddingConfig struct {
	Provider string
	Model    string
}

type MediaConfig struct {
	FFprobePath string
	FFmpegPath  string
}

// QualityThresholds bucket transcription quality. The defaults are heuristics
// carried over from the first version of the pipeline, not calibrated values.
type QualityThresholds struct {
	AudioExcellent float64 // mean no_speech_prob below
	AudioGood      float64
	AudioFair      float64

	TranscriptExcellent float64 // mean confidence at or above
	TranscriptGood      float64
	TranscriptFair      float64

	MaxCompressionRatio float64 // above this the transcript bucket drops one level
}

func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		AudioExcellent:      0.1,
		AudioGood:           0.3,
		AudioFair:           0.6,
		TranscriptExcellent: 0.85,
		TranscriptGood:      0.7,
		TranscriptFair:      0.5,
		MaxCompressionRatio: 2.4,
	}
}

type PipelineConfig struct {
	LockTTL              time.Duration
	FileInfoTimeout      time.Duration
	TranscriptionTimeout time.Duration
	VisionTimeout        time.Duration
	EmbeddingTimeout     time.Duration
	ProviderRetries      int
	RetryBaseDelay       time.Duration
	Quality              QualityThresholds
}

type StoryConfig struct {
	Provider    string // empty uses the LLM default provider
	Model       string
	Voice       string
	CoverModels []string // tried in order

	// MaxPromptChars bounds the free-text guidance of a story request.
	MaxPromptChars int
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUploadMB, err := getEnvInt("MAX_UPLOAD_MB", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	minioSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
	}

	rateRPS, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateBurst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	maxPrompt, err := getEnvInt("STORY_MAX_PROMPT_CHARS", 2000)
	if err != nil {
		return nil, fmt.Errorf("invalid STORY_MAX_PROMPT_CHARS: %w", err)
	}

	pipeline, err := loadPipeline()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			MaxUploadSize:  int64(maxUploadMB) << 20,
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "supabase"),
			Bucket:         getEnv("STORAGE_BUCKET", "media"),
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioUseSSL:    minioSSL,
			MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		TTS: TTSConfig{
			Backend:       getEnv("TTS_BACKEND", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("TTS_OPENAI_MODEL", ""),
			LocalBinPath:  getEnv("TTS_LOCAL_PIPER_BIN", "piper"),
			LocalModel:    getEnv("TTS_LOCAL_PIPER_MODEL", ""),
		},
		Vision: VisionConfig{
			Provider: getEnv("VISION_PROVIDER", "openai"),
			Model:    getEnv("VISION_MODEL", "gpt-4o-mini"),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Media: MediaConfig{
			FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
			FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		},
		Pipeline: *pipeline,
		Story: StoryConfig{
			Provider:    getEnv("STORY_PROVIDER", ""),
			Model:       getEnv("STORY_MODEL", ""),
			Voice:       getEnv("STORY_VOICE", "alloy"),
			CoverModels: getEnvList("STORY_COVER_MODELS", []string{"dall-e-3", "dall-e-2"}),

			MaxPromptChars: maxPrompt,
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func loadPipeline() (*PipelineConfig, error) {
	var err error
	p := &PipelineConfig{Quality: DefaultQualityThresholds()}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"PIPELINE_LOCK_TTL", 30 * time.Minute, &p.LockTTL},
		{"PIPELINE_FILE_INFO_TIMEOUT", 30 * time.Second, &p.FileInfoTimeout},
		{"PIPELINE_TRANSCRIPTION_TIMEOUT", 5 * time.Minute, &p.TranscriptionTimeout},
		{"PIPELINE_VISION_TIMEOUT", 2 * time.Minute, &p.VisionTimeout},
		{"PIPELINE_EMBEDDING_TIMEOUT", 30 * time.Second, &p.EmbeddingTimeout},
		{"PIPELINE_RETRY_BASE_DELAY", 500 * time.Millisecond, &p.RetryBaseDelay},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.fallback); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if p.ProviderRetries, err = getEnvInt("PIPELINE_PROVIDER_RETRIES", 2); err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_PROVIDER_RETRIES: %w", err)
	}

	thresholds := []struct {
		key string
		dst *float64
	}{
		{"QUALITY_AUDIO_EXCELLENT", &p.Quality.AudioExcellent},
		{"QUALITY_AUDIO_GOOD", &p.Quality.AudioGood},
		{"QUALITY_AUDIO_FAIR", &p.Quality.AudioFair},
		{"QUALITY_TRANSCRIPT_EXCELLENT", &p.Quality.TranscriptExcellent},
		{"QUALITY_TRANSCRIPT_GOOD", &p.Quality.TranscriptGood},
		{"QUALITY_TRANSCRIPT_FAIR", &p.Quality.TranscriptFair},
		{"QUALITY_MAX_COMPRESSION_RATIO", &p.Quality.MaxCompressionRatio},
	}
	for _, t := range thresholds {
		if *t.dst, err = getEnvFloat(t.key, *t.dst); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", t.key, err)
		}
	}

	return p, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.Storage.Backend {
	case "supabase":
		if c.Storage.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
	case "minio":
		if c.Storage.MinioAccessKey == "" {
			missing = append(missing, "MINIO_ACCESS_KEY")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
