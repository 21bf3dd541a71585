package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	S3Region       string
	S3Bucket       string

	TryOnProvider string
	FashnAPIKey   string
	FashnBaseURL  string
	FashnModel    string

	TouchUpEnabled bool
	EditAPIKey     string
	EditBaseURL    string
	EditModel      string

	AnalysisBudget    time.Duration
	AnalysisCacheTTL  time.Duration
	AnalysisCacheSize int

	PollInterval time.Duration
	PollCeiling  time.Duration
	MaxRetries   int
	RetryBase    time.Duration

	SweepInterval time.Duration
	SweepBatch    int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageDriver:  getEnv("STORAGE_DRIVER", "file"),
		StoragePath:    getEnv("STORAGE_PATH", "./data/storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		S3Region:       os.Getenv("S3_REGION"),
		S3Bucket:       os.Getenv("S3_BUCKET"),

		TryOnProvider: getEnv("TRYON_PROVIDER", "stub"),
		FashnAPIKey:   os.Getenv("FASHN_API_KEY"),
		FashnBaseURL:  getEnv("FASHN_BASE_URL", "https://api.fashn.ai/v1"),
		FashnModel:    getEnv("FASHN_MODEL", "tryon-v1.6"),

		TouchUpEnabled: getEnvBool("TOUCHUP_ENABLED", false),
		EditAPIKey:     os.Getenv("EDIT_API_KEY"),
		EditBaseURL:    getEnv("EDIT_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		EditModel:      getEnv("EDIT_MODEL", "qwen-image-edit"),

		AnalysisBudget:    time.Second * time.Duration(getEnvInt("ANALYSIS_BUDGET_SECONDS", 12)),
		AnalysisCacheTTL:  time.Minute * time.Duration(getEnvInt("ANALYSIS_CACHE_TTL_MINUTES", 60)),
		AnalysisCacheSize: getEnvInt("ANALYSIS_CACHE_SIZE", 100),

		PollInterval: time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 2)),
		PollCeiling:  time.Second * time.Duration(getEnvInt("POLL_CEILING_SECONDS", 60)),
		MaxRetries:   getEnvInt("MAX_RETRIES", 2),
		RetryBase:    time.Second * time.Duration(getEnvInt("RETRY_BASE_SECONDS", 1)),

		SweepInterval: time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 30)),
		SweepBatch:    getEnvInt("SWEEP_BATCH", 20),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.TryOnProvider != "stub" && cfg.TryOnProvider != "fashn" {
		return nil, fmt.Errorf("TRYON_PROVIDER must be stub or fashn, got %q", cfg.TryOnProvider)
	}

	if cfg.StorageDriver == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
