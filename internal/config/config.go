package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Search SearchConfig
	Llm    LlmConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SessionTTL         time.Duration
	OtelEnabled        bool
	OtelEndpoint       string
}

type StoreConfig struct {
	// memory, pebble, redis or postgres
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DSN           string
}

type SearchConfig struct {
	// duckduckgo or remote
	Provider       string
	Endpoint       string
	DuckDuckGoURL  string
	RatePerSecond  float64
	CacheTTL       time.Duration
	EnabledDefault bool
}

type LlmConfig struct {
	CloudBaseURL  string
	OllamaBaseURL string
	HFApiKey      string
	HFBaseURL     string
	DefaultModel  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "pebble"),
			Path:          getEnv("STORE_PATH", "data/chats"),
			RedisAddr:     getEnv("STORE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("STORE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("STORE_REDIS_DB", 0),
			DSN:           getEnv("DB_CONNECTION_STRING", ""),
		},
		Search: SearchConfig{
			Provider:       getEnv("SEARCH_PROVIDER", "duckduckgo"),
			Endpoint:       getEnv("SEARCH_ENDPOINT", "http://localhost:3000/api/search"),
			DuckDuckGoURL:  getEnv("DUCKDUCKGO_URL", ""),
			RatePerSecond:  getEnvAsFloat("SEARCH_RATE_PER_SECOND", 1),
			CacheTTL:       getEnvAsDuration("SEARCH_CACHE_TTL", 10*time.Minute),
			EnabledDefault: getEnvAsBool("SEARCH_ENABLED", true),
		},
		Llm: LlmConfig{
			CloudBaseURL:  getEnv("CLOUD_LLM_BASE_URL", "http://localhost:3000"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HFApiKey:      getEnv("HF_API_KEY", ""),
			HFBaseURL:     getEnv("HF_BASE_URL", ""),
			DefaultModel:  getEnv("LLM_MODEL", "gemini-2.5-flash"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
