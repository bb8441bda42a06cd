package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Rerank   RerankConfig
	Context  ContextConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type AIConfig struct {
	OllamaBaseURL  string
	LLMModel       string
	EmbeddingModel string
	IngestTopic    string
}

// RerankConfig comes straight from the environment; zero values mean
// "no limit" and an unset threshold disables score filtering.
type RerankConfig struct {
	Model           string
	TopN            int
	ScoreThreshold  *float64
	CollectedNumber int
}

// ContextConfig selects the default prior-context behavior for new
// chat sessions.
type ContextConfig struct {
	UseMarked      bool
	UseHistory     bool
	UseFullHistory bool
	HistoryLength  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMModel:       getEnv("LLM_MODEL", "qwen2.5"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			IngestTopic:    getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT"),
		},
		Rerank: RerankConfig{
			Model:           getEnv("RERANK_MODEL", "qwen2.5"),
			TopN:            getEnvAsInt("RERANK_TOP_N", 0),
			ScoreThreshold:  getEnvAsFloatPtr("RERANK_SCORE_THRESHOLD"),
			CollectedNumber: getEnvAsInt("RERANK_COLLECTED_NUMBER", 0),
		},
		Context: ContextConfig{
			UseMarked:      getEnvAsBool("CONTEXT_USE_MARKED", true),
			UseHistory:     getEnvAsBool("CONTEXT_USE_HISTORY", true),
			UseFullHistory: getEnvAsBool("CONTEXT_USE_FULL_HISTORY", false),
			HistoryLength:  getEnvAsInt("CONTEXT_HISTORY_LENGTH", 5),
		},
	}
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloatPtr(key string) *float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return &value
	}
	return nil
}
