package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Upstream       UpstreamConfig
	Forwarding     ForwardingConfig
	RetryQueue     RetryQueueConfig `mapstructure:"retry_queue"`
	Admin          AdminConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Logging        LoggingConfig
}

type ServerConfig struct {
	Port                int `mapstructure:"port"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	MongoDB MongoDBConfig
}

type MongoDBConfig struct {
	URI         string            `mapstructure:"uri"`
	Database    string            `mapstructure:"database"`
	Collections CollectionsConfig `mapstructure:"collections"`
}

type CollectionsConfig struct {
	Logs          string `mapstructure:"logs"`
	Pages         string `mapstructure:"pages"`
	Notifications string `mapstructure:"notifications"`
	Addresses     string `mapstructure:"addresses"`
}

// UpstreamConfig holds the shared secrets and identifiers for the page
// platform that sends webhook events.
type UpstreamConfig struct {
	VerifyToken     string        `mapstructure:"verify_token"`
	AppSecret       string        `mapstructure:"app_secret"`
	PageID          string        `mapstructure:"page_id"`
	PageAccessToken string        `mapstructure:"page_access_token"`
	GraphAPIBase    string        `mapstructure:"graph_api_base"`
	ReplyTimeout    time.Duration `mapstructure:"reply_timeout"`
}

type ForwardingConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Mode               string        `mapstructure:"mode"` // "structured" or "raw"
	BackendURL         string        `mapstructure:"backend_url"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	AsyncSizeThreshold int           `mapstructure:"async_size_threshold"`
	HighPriorityKinds  []string      `mapstructure:"high_priority_kinds"`
}

type RetryQueueConfig struct {
	Capacity     int           `mapstructure:"capacity"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	AttemptDelay time.Duration `mapstructure:"attempt_delay"`
}

type AdminConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
