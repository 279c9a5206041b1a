package mcqgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Store backends selectable with MCQGEN_STORE.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds process configuration read from the environment
type Config struct {
	StoreBackend      string
	DBPath            string
	RedisAddr         string
	APIKey            string `json:"-"` // Never serialize
	OpenAIBaseURL     string
	Model             string
	GenerationTimeout time.Duration
	TranscriptDir     string
	Port              string
	SessionSecret     string
	Offline           bool
	Verbose           bool
}

// LoadConfig reads the configuration from the environment, falling back to
// defaults for anything unset or unparsable.
func LoadConfig() *Config {
	return &Config{
		StoreBackend:      getEnvOrDefault("MCQGEN_STORE", BackendSQLite),
		DBPath:            getEnvOrDefault("MCQGEN_DB_PATH", "./mcqgen.db"),
		RedisAddr:         getEnvOrDefault("MCQGEN_REDIS_ADDR", "localhost:6379"),
		APIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		Model:             getEnvOrDefault("MCQGEN_MODEL", "gpt-4o"),
		GenerationTimeout: getEnvDuration("MCQGEN_GENERATION_TIMEOUT", DefaultGenerationTimeout),
		TranscriptDir:     os.Getenv("MCQGEN_LOG_DIR"),
		Port:              getEnvOrDefault("PORT", "8180"),
		SessionSecret:     getEnvOrDefault("MCQGEN_SESSION_SECRET", "change-me-session-secret"),
		Offline:           getEnvBool("MCQGEN_OFFLINE", false),
		Verbose:           getEnvBool("MCQGEN_VERBOSE", false),
	}
}

// OpenStore opens the configured backend. The returned closer releases it.
func OpenStore(ctx context.Context, cfg *Config) (KVStore, io.Closer, error) {
	switch cfg.StoreBackend {
	case BackendSQLite:
		s, err := OpenSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendRedis:
		s, err := OpenRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendMemory:
		s := NewMemoryStore()
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// NewQuestionService returns the offline sample service or the OpenAI one.
func NewQuestionService(cfg *Config) QuestionService {
	if cfg.Offline {
		return SampleService{}
	}
	opts := []OpenAIOption{WithModel(cfg.Model)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.TranscriptDir != "" {
		opts = append(opts, WithTranscriptDir(cfg.TranscriptDir))
	}
	return NewOpenAIService(opts...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}
