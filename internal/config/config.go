package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Chat     ChatConfig
	Ai       AIConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventBus           string // "gochannel" or "nats"
	SessionClaim       string // "memory" or "redis"
}

type DatabaseConfig struct {
	Driver     string // "postgres", "sqlite" or "memory"
	Connection string
	SQLitePath string
}

type ChatConfig struct {
	AgentsFile                string
	SessionTimeoutSeconds     int
	RetryAfterSeconds         int
	CacheCleaningProbability  float64
	RichContentTTLSeconds     int
	ConversationMemoryTTLSecs int
}

type AIConfig struct {
	LLMProvider   string // "ollama"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
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
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "logs/events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			EventBus:           getEnv("EVENT_BUS", "gochannel"),
			SessionClaim:       getEnv("SESSION_CLAIM", "memory"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			SQLitePath: getEnv("SQLITE_PATH", "data/chatbot.db"),
		},
		Chat: ChatConfig{
			AgentsFile:                getEnv("AGENTS_FILE", "config/agents.yaml"),
			SessionTimeoutSeconds:     getEnvAsInt("API_SESSION_TIMEOUT", 1800),
			RetryAfterSeconds:         getEnvAsInt("API_RETRY_AFTER", 2),
			CacheCleaningProbability:  getEnvAsFloat("CACHE_CLEANING_PROBABILITY", 0.01),
			RichContentTTLSeconds:     getEnvAsInt("RICH_CONTENT_TTL", 86400),
			ConversationMemoryTTLSecs: getEnvAsInt("CONVERSATION_MEMORY_TTL", 1800),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-chatbot-backend"),
		},
	}
}

func (c *ChatConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

func (c *ChatConfig) RichContentTTL() time.Duration {
	return time.Duration(c.RichContentTTLSeconds) * time.Second
}

func (c *ChatConfig) ConversationMemoryTTL() time.Duration {
	return time.Duration(c.ConversationMemoryTTLSecs) * time.Second
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
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
