package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT (tokens are issued by the account service)
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	GeminiConcurrentReqs int

	// Enrichment
	AnalyzerMaxPromptTokens int
	DefaultCategory         string
	WorkerCount             int
	StaleProcessingMinutes  int

	// Rate limiting
	IngestRateLimitPerMinute int

	// Recommendations
	ProfileEmbeddingTTLMinutes int
	MinProfileTextLength       int
	SemanticCandidateLimit     int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                       getEnvOrDefault("PORT", "8080"),
		Env:                        getEnvOrDefault("ENV", "development"),
		DatabaseURL:                mustGetEnv("DATABASE_URL"),
		MigrationsDir:              getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:                   mustGetEnv("REDIS_URL"),
		JWTSecret:                  mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:               mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:                getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbeddingModel:       getEnvOrDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		GeminiConcurrentReqs:       getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		AnalyzerMaxPromptTokens:    getEnvAsIntOrDefault("ANALYZER_MAX_PROMPT_TOKENS", 30000),
		DefaultCategory:            getEnvOrDefault("DEFAULT_CATEGORY", "business"),
		WorkerCount:                getEnvAsIntOrDefault("WORKER_COUNT", 3),
		StaleProcessingMinutes:     getEnvAsIntOrDefault("STALE_PROCESSING_MINUTES", 30),
		IngestRateLimitPerMinute:   getEnvAsIntOrDefault("INGEST_RATE_LIMIT_PER_MINUTE", 10),
		ProfileEmbeddingTTLMinutes: getEnvAsIntOrDefault("PROFILE_EMBEDDING_TTL_MINUTES", 60),
		MinProfileTextLength:       getEnvAsIntOrDefault("MIN_PROFILE_TEXT_LENGTH", 20),
		SemanticCandidateLimit:     getEnvAsIntOrDefault("SEMANTIC_CANDIDATE_LIMIT", 30),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
