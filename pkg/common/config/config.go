package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	IngestionTopic      string
	MatchingOutputTopic string
	MatchingDLQTopic    string

	// Embedding provider (OpenAI-compatible /embeddings endpoint)
	EmbeddingAPIKey        string
	EmbeddingBaseURL       string
	EmbeddingModel         string
	EmbeddingTimeout       time.Duration
	EmbeddingRetryAttempts int
	EmbeddingCacheTTL      time.Duration

	// Matching
	MatchingRulesPath string

	// Ingestion
	IngestionAllowedSources []string
	IngestionStatusTTL      time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "medifusion"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "medifusion123"),
		PostgresDB:       getEnv("POSTGRES_DB", "medifusion"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "medifusion-platform"),
		IngestionTopic:      getEnv("INGESTION_TOPIC", "patients.extracted"),
		MatchingOutputTopic: getEnv("MATCHING_OUTPUT_TOPIC", "patients.matched"),
		MatchingDLQTopic:    getEnv("MATCHING_DLQ_TOPIC", ""),

		EmbeddingAPIKey:        getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingBaseURL:       getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:         getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingTimeout:       getDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		EmbeddingRetryAttempts: getIntEnv("EMBEDDING_RETRY_ATTEMPTS", 3),
		EmbeddingCacheTTL:      getDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		MatchingRulesPath: getEnv("MATCHING_RULES_PATH", ""),

		IngestionAllowedSources: getStringSliceEnv("INGESTION_ALLOWED_SOURCES", []string{"hospital", "lab", "imaging", "clinic"}),
		IngestionStatusTTL:      getDuration("INGESTION_STATUS_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
