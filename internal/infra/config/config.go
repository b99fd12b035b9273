package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds process-level settings: server, store, and provider
// endpoints. Retrieval tunables live in usecase.RagConfig.
type Config struct {
	Env    string
	Server ServerConfig
	DB     DBConfig

	Embedding EmbeddingConfig
	Reranker  RerankerConfig
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

// DSN renders the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type EmbeddingConfig struct {
	URL            string
	Model          string
	TimeoutSeconds int
	// RequestsPerSecond throttles bulk ingestion embedding calls.
	// Zero disables throttling.
	RequestsPerSecond float64
}

type RerankerConfig struct {
	URL            string
	Model          string
	TimeoutSeconds int
}

// Load reads configuration from the environment with documented defaults.
func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port: getEnv("PORT", "9020"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "context-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "context_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "context_password"),
			Name:     getEnv("DB_NAME", "context_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Embedding: EmbeddingConfig{
			URL:               getEnv("EMBEDDING_URL", "http://embedding:11434"),
			Model:             getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			TimeoutSeconds:    getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30),
			RequestsPerSecond: getEnvFloat64("EMBEDDING_REQUESTS_PER_SECOND", 0),
		},
		Reranker: RerankerConfig{
			URL:            getEnv("RERANKER_URL", "http://reranker:8001"),
			Model:          getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
			TimeoutSeconds: getEnvInt("RERANKER_TIMEOUT_SECONDS", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads a value from the environment directly, or from the file
// named by fileEnvKey (container secret mounts).
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
