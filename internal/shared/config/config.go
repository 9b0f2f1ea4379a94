package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cvposts-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string
	LLMBaseURL      string
	LLMModel        string
	LLMTimeout      time.Duration
	LLMMaxRetries   int
	ParseMode       string
	PostConcurrency int
	CalendarDays    int
	NewsFeedURL     string
	NewsLimit       int
	NewsTimeout     time.Duration
	MaxUploadBytes  int64
}

const (
	ParseModeStructured = "structured"
	ParseModeLabeled    = "labeled"
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Config{
		Port:            getEnv("PORT", "8000"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LLMBaseURL:      strings.TrimRight(getEnv("LLM_BASE_URL", "https://api.openai.com/v1"), "/"),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-2024-11-20"),
		LLMTimeout:      time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 2),
		ParseMode:       normalizeParseMode(getEnv("PARSE_MODE", ParseModeStructured)),
		PostConcurrency: getEnvInt("POST_CONCURRENCY", 4),
		CalendarDays:    getEnvInt("CALENDAR_DAYS", 30),
		NewsFeedURL:     getEnv("NEWS_FEED_URL", "https://news.google.com/rss/search"),
		NewsLimit:       getEnvInt("NEWS_LIMIT", 5),
		NewsTimeout:     time.Duration(getEnvInt("NEWS_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
	}

	if cfg.PostConcurrency < 1 {
		telemetry.Warn("config.invalid_value", map[string]any{
			"key":      "POST_CONCURRENCY",
			"value":    cfg.PostConcurrency,
			"fallback": 1,
		})
		cfg.PostConcurrency = 1
	}
	if cfg.LLMMaxRetries < 0 {
		cfg.LLMMaxRetries = 0
	}
	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_value", map[string]any{
			"key":      key,
			"value":    raw,
			"fallback": def,
			"error":    err,
		})
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeParseMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ParseModeLabeled, "heuristic", "text":
		return ParseModeLabeled
	default:
		return ParseModeStructured
	}
}
