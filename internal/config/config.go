package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RishiKendai/textguard/internal/configs/env"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// Vault
	EncryptionKey string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int
	WorkerPoolSize       int

	// Computation
	ComputationTimeout time.Duration
	Engine             plagiarism.Options
	EngineConfigFile   string

	// Uploads
	MaxUploadBytes int64

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "textguard")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "textguard:submissions")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "textguard:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "textguard:dlq")
	cfg.StreamRetentionDuration = env.GetEnvDuration("STREAM_RETENTION_DURATION", time.Hour, 24*time.Hour)

	// Vault
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "textguard")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 5)
	cfg.WorkerPoolSize = env.GetEnvInt("WORKER_POOL_SIZE", 0)

	// Computation
	cfg.ComputationTimeout = env.GetEnvDuration("COMPUTATION_TIMEOUT_MINUTES", time.Minute, 30*time.Minute)
	cfg.EngineConfigFile = env.GetEnv("ENGINE_CONFIG_FILE", "")
	cfg.Engine = plagiarism.DefaultOptions()
	if cfg.EngineConfigFile != "" {
		opts, err := LoadEngineOptions(cfg.EngineConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Engine = opts
	}

	// Uploads
	cfg.MaxUploadBytes = env.GetEnvInt64("MAX_UPLOAD_BYTES", 10<<20)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")
	cfg.LogFormat = env.GetEnv("LOG_FORMAT", "json")
	if env.GetEnvBool("LOG_PRETTY", false) {
		cfg.LogFormat = "console"
	}

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

// LoadEngineOptions reads scoring options from a YAML file.
// Keys missing from the file keep their default values.
func LoadEngineOptions(path string) (plagiarism.Options, error) {
	opts := plagiarism.DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read engine config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse engine config %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid engine config %s: %w", path, err)
	}

	return opts, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return errors.New("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return errors.New("REDIS_HOST is required")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes, got %d", len(c.EncryptionKey))
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RateLimitRPS <= 0 {
		return errors.New("RATE_LIMIT_RPS must be greater than 0")
	}
	if c.MaxConcurrentCompute <= 0 {
		return errors.New("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return errors.New("COMPUTATION_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return errors.New("STREAM_RETENTION_DURATION must be greater than 0")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("invalid engine options: %w", err)
	}
	return nil
}
