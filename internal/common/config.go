package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Match     MatchConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds text-generation service configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Host  string
	Model string
	Token string
}

// MatchConfig holds matching engine tuning
type MatchConfig struct {
	VectorWeight        float64
	SymbolicWeight      float64
	ExactMatchBonus     float64
	SimilarityThreshold float64
	TopK                int
	CandidatePool       int
}

// PipelineConfig holds pipeline concurrency settings
type PipelineConfig struct {
	Workers int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			Backoff:     getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Embedding: EmbeddingConfig{
			Host:  getEnv("EMBEDDING_HOST", ""),
			Model: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Token: getEnv("EMBEDDING_API_KEY", "none"),
		},
		Match: MatchConfig{
			VectorWeight:        getEnvAsFloat64("MATCH_VECTOR_WEIGHT", 0.7),
			SymbolicWeight:      getEnvAsFloat64("MATCH_SYMBOLIC_WEIGHT", 0.3),
			ExactMatchBonus:     getEnvAsFloat64("MATCH_EXACT_BONUS", 0.15),
			SimilarityThreshold: getEnvAsFloat64("MATCH_THRESHOLD", 0.6),
			TopK:                getEnvAsInt("MATCH_TOP_K", 5),
			CandidatePool:       getEnvAsInt("MATCH_CANDIDATE_POOL", 50),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("MATCH_WORKERS", 0),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Match.VectorWeight < 0 || c.Match.SymbolicWeight < 0 {
		return NewAppError("CONFIG_ERROR", "match weights must be non-negative", ErrInvalidInput)
	}
	if c.Match.SimilarityThreshold < 0 || c.Match.SimilarityThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "MATCH_THRESHOLD must be in [0,1]", ErrInvalidInput)
	}
	if c.Match.TopK < 1 {
		return NewAppError("CONFIG_ERROR", "MATCH_TOP_K must be at least 1", ErrInvalidInput)
	}
	return nil
}
