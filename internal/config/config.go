package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Keys       APIKeys
	Ai         AIConfig
	Chunking   ChunkingConfig
	Generation GenerationConfig
	Checkpoint CheckpointConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	GenerationTopic    string
}

type DatabaseConfig struct {
	Connection   string
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
}

type APIKeys struct {
	GoogleGemini       string
	HuggingFace        string
	Jina               string
	GoogleSearch       string
	GoogleSearchEngine string
}

type AIConfig struct {
	EmbeddingProvider   string // "gemini", "ollama" or "jina"
	OllamaBaseURL       string
	OllamaModel         string
	LLMProvider         string // "ollama" or "huggingface"
	LLMModel            string
	EmbeddingCacheTTL   time.Duration
	EmbeddingRPS        float64
	EmbeddingBurst      int
	EmbeddingWorkers    int
	CardDecisionWorkers int
}

type ChunkingConfig struct {
	MinSize     int
	MaxSize     int
	OverlapSize int
	Threshold   float64
}

type GenerationConfig struct {
	InitialInterval     time.Duration
	Multiplier          float64
	MaxInterval         time.Duration
	RandomizationFactor float64
	MaxFailures         int
	UnitTimeout         time.Duration
	Concurrency         int
	// Sequential runs one chunk at a time so flashcard fronts accepted for
	// earlier chunks are visible to later ones.
	Sequential bool
	MaxSteps   int
}

type CheckpointConfig struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			GenerationTopic:    getEnv("GENERATION_TOPIC_NAME", "GENERATE_STUDY_CONTENT"),
		},
		Database: DatabaseConfig{
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Keys: APIKeys{
			GoogleGemini:       getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:        getEnv("HUGGINGFACE_API_KEY", ""),
			Jina:               getEnv("JINA_API_KEY", ""),
			GoogleSearch:       getEnv("GOOGLE_SEARCH_API_KEY", ""),
			GoogleSearchEngine: getEnv("GOOGLE_SEARCH_ENGINE_ID", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:         getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			EmbeddingCacheTTL:   getEnvAsDuration("EMBEDDING_CACHE_TTL", 30*time.Minute),
			EmbeddingRPS:        getEnvAsFloat("EMBEDDING_REQUESTS_PER_SECOND", 10),
			EmbeddingBurst:      getEnvAsInt("EMBEDDING_BURST", 5),
			EmbeddingWorkers:    getEnvAsInt("EMBEDDING_WORKERS", 4),
			CardDecisionWorkers: getEnvAsInt("FLASHCARD_DECISION_WORKERS", 4),
		},
		Chunking: ChunkingConfig{
			MinSize:     getEnvAsInt("CHUNK_MIN_SIZE", 3),
			MaxSize:     getEnvAsInt("CHUNK_MAX_SIZE", 8),
			OverlapSize: getEnvAsInt("CHUNK_OVERLAP_SIZE", 1),
			Threshold:   getEnvAsFloat("CHUNK_SIMILARITY_THRESHOLD", 0.7),
		},
		Generation: GenerationConfig{
			InitialInterval:     getEnvAsDuration("GENERATION_RETRY_BASE_DELAY", 500*time.Millisecond),
			Multiplier:          getEnvAsFloat("GENERATION_RETRY_MULTIPLIER", 2),
			MaxInterval:         getEnvAsDuration("GENERATION_RETRY_MAX_DELAY", 10*time.Second),
			RandomizationFactor: getEnvAsFloat("GENERATION_RETRY_JITTER", 0.2),
			MaxFailures:         getEnvAsInt("GENERATION_MAX_FAILURES", 3),
			UnitTimeout:         getEnvAsDuration("GENERATION_UNIT_TIMEOUT", 2*time.Minute),
			Concurrency:         getEnvAsInt("GENERATION_CONCURRENCY", 4),
			Sequential:          getEnvAsBool("GENERATION_SEQUENTIAL", false),
			MaxSteps:            getEnvAsInt("GENERATION_MAX_STEPS", 100),
		},
		Checkpoint: CheckpointConfig{
			Backend: getEnv("CHECKPOINT_BACKEND", "memory"),
			TTL:     getEnvAsDuration("CHECKPOINT_TTL", time.Hour),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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

// getEnvAsDuration accepts Go duration strings ("750ms", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
