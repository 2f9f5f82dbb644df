package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"hookrelay/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	// The config file is optional: environment variables alone can carry a
	// full deployment configuration.
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("upstream.verify_token", "UPSTREAM_VERIFY_TOKEN")
	viper.BindEnv("upstream.app_secret", "UPSTREAM_APP_SECRET")
	viper.BindEnv("upstream.page_id", "UPSTREAM_PAGE_ID")
	viper.BindEnv("upstream.page_access_token", "UPSTREAM_PAGE_ACCESS_TOKEN")
	viper.BindEnv("upstream.graph_api_base", "UPSTREAM_GRAPH_API_BASE")

	viper.BindEnv("forwarding.backend_url", "FORWARDING_BACKEND_URL")
	viper.BindEnv("forwarding.api_key", "FORWARDING_API_KEY")
	viper.BindEnv("forwarding.enabled", "FORWARDING_ENABLED")
	viper.BindEnv("forwarding.mode", "FORWARDING_MODE")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)

	viper.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)
	viper.SetDefault("database.mongodb.collections.logs", constants.CollectionWebhookLogs)
	viper.SetDefault("database.mongodb.collections.pages", constants.CollectionPages)
	viper.SetDefault("database.mongodb.collections.notifications", constants.CollectionNotifications)
	viper.SetDefault("database.mongodb.collections.addresses", constants.CollectionAddresses)

	viper.SetDefault("upstream.graph_api_base", "https://graph.facebook.com/v22.0")
	viper.SetDefault("upstream.reply_timeout", constants.DefaultReplyTimeout)

	viper.SetDefault("forwarding.enabled", true)
	viper.SetDefault("forwarding.mode", constants.ForwardModeStructured)
	viper.SetDefault("forwarding.timeout", constants.DefaultForwardTimeout)
	viper.SetDefault("forwarding.async_size_threshold", constants.DefaultAsyncSizeThreshold)

	viper.SetDefault("retry_queue.capacity", constants.DefaultQueueCapacity)
	viper.SetDefault("retry_queue.max_attempts", constants.DefaultMaxAttempts)
	viper.SetDefault("retry_queue.attempt_delay", constants.DefaultAttemptDelay)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
