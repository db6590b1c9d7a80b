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
	RedisURL    string

	DashScopeAPIKey  string
	DashScopeBaseURL string
	ImageModel       string
	VideoModel       string

	GeminiAPIKey  string
	GeminiBaseURL string
	VisionModel   string

	NarrationAPIKey  string
	NarrationBaseURL string
	NarrationVoice   string

	PublisherAPIKey  string
	PublisherBaseURL string

	AutopilotTickInterval time.Duration
	ChainPollInterval     time.Duration
	ReconcileInterval     time.Duration
	OrphanIntentMaxAge    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		ImageModel:       getEnv("IMAGE_MODEL", "wan2.2-t2i-plus"),
		VideoModel:       getEnv("VIDEO_MODEL", "wan2.2-i2v-plus"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VisionModel:   getEnv("VISION_MODEL", "gemini-2.0-flash"),

		NarrationAPIKey:  os.Getenv("NARRATION_API_KEY"),
		NarrationBaseURL: os.Getenv("NARRATION_BASE_URL"),
		NarrationVoice:   getEnv("NARRATION_VOICE", "alloy"),

		PublisherAPIKey:  os.Getenv("PUBLISHER_API_KEY"),
		PublisherBaseURL: os.Getenv("PUBLISHER_BASE_URL"),

		AutopilotTickInterval: time.Minute * time.Duration(getEnvInt("AUTOPILOT_TICK_MINUTES", 5)),
		ChainPollInterval:     time.Second * time.Duration(getEnvInt("CHAIN_POLL_SECONDS", 30)),
		ReconcileInterval:     time.Minute * time.Duration(getEnvInt("RECONCILE_MINUTES", 2)),
		OrphanIntentMaxAge:    time.Minute * time.Duration(getEnvInt("ORPHAN_INTENT_MAX_AGE_MINUTES", 10)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
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
