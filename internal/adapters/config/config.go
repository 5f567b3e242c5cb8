package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"minerva/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Cache         CacheConfig
	AI            AIConfig
	Providers     ProvidersConfig
	Workflow      WorkflowConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"minerva"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

// PostgresConfig configures the research store. Host may be empty, in which
// case the engine falls back to in-memory repositories.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"minerva"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"minerva"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Enabled reports whether a postgres host is configured
func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a redis host is configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// CacheConfig configures tool-result memoization
type CacheConfig struct {
	// Backend selects the cache store: file, redis or memory
	Backend string        `envconfig:"CACHE_BACKEND" default:"file"`
	TTL     time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	Dir     string        `envconfig:"CACHE_DIR" default:".minerva/cache"`
}

type AIConfig struct {
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OllamaURL       string        `envconfig:"OLLAMA_URL"`
	OllamaModel     string        `envconfig:"OLLAMA_MODEL" default:"llama3.1"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"openai"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
	RateLimitPerMin float64       `envconfig:"AI_RATE_LIMIT_PER_MIN" default:"60"`
}

// ProvidersConfig configures the external data providers
type ProvidersConfig struct {
	YahooBaseURL string `envconfig:"YAHOO_BASE_URL" default:"https://query1.finance.yahoo.com"`

	EdgarBaseURL    string `envconfig:"EDGAR_BASE_URL" default:"https://data.sec.gov"`
	EdgarUserAgent  string `envconfig:"EDGAR_USER_AGENT" default:"minerva research engine admin@example.com"`
	EdgarRatePerSec int    `envconfig:"EDGAR_RATE_PER_SEC" default:"8"`

	// FilingsProvider optionally routes SEC filing tools to a named provider
	// different from the default fundamentals provider. Empty means default.
	FilingsProvider string `envconfig:"FILINGS_PROVIDER"`
}

// WorkflowConfig bounds the agentic loop
type WorkflowConfig struct {
	MaxIterations int     `envconfig:"WORKFLOW_MAX_ITERATIONS" default:"5"`
	Temperature   float64 `envconfig:"WORKFLOW_TEMPERATURE" default:"0.7"`
}

// TelegramConfig configures the optional completion notifier
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// Enabled reports whether notifications are configured
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains settings for background workers
type WorkerConfig struct {
	// Execution poller picks up pending research and runs it
	ExecutionEnabled  bool          `envconfig:"WORKER_EXECUTION_ENABLED" default:"true"`
	ExecutionInterval time.Duration `envconfig:"WORKER_EXECUTION_INTERVAL" default:"15s"`
	ExecutionBatch    int           `envconfig:"WORKER_EXECUTION_BATCH" default:"5"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
