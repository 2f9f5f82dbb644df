package config

import (
	"fmt"
	"net/url"

	"hookrelay/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateForwarding(cfg.Forwarding); err != nil {
		errors = append(errors, err)
	}

	if err := validateRetryQueue(cfg.RetryQueue); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.MongoDB.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "mongodb uri is required",
		}
	}

	if cfg.MongoDB.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "mongodb database name is required",
		}
	}

	return nil
}

func validateForwarding(cfg ForwardingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.BackendURL == "" {
		return &ValidationError{
			Field:   "forwarding.backend_url",
			Message: "backend url is required when forwarding is enabled",
		}
	}

	if _, err := url.ParseRequestURI(cfg.BackendURL); err != nil {
		return &ValidationError{
			Field:   "forwarding.backend_url",
			Message: fmt.Sprintf("backend url is not a valid URL: %v", err),
		}
	}

	switch cfg.Mode {
	case constants.ForwardModeStructured, constants.ForwardModeRaw:
	default:
		return &ValidationError{
			Field:   "forwarding.mode",
			Message: fmt.Sprintf("mode must be %q or %q, got %q", constants.ForwardModeStructured, constants.ForwardModeRaw, cfg.Mode),
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "forwarding.timeout",
			Message: "timeout must be positive",
		}
	}

	if cfg.AsyncSizeThreshold <= 0 {
		return &ValidationError{
			Field:   "forwarding.async_size_threshold",
			Message: "async size threshold must be positive",
		}
	}

	return nil
}

func validateRetryQueue(cfg RetryQueueConfig) error {
	if cfg.Capacity <= 0 {
		return &ValidationError{
			Field:   "retry_queue.capacity",
			Message: "capacity must be positive",
		}
	}

	if cfg.MaxAttempts <= 0 {
		return &ValidationError{
			Field:   "retry_queue.max_attempts",
			Message: "max attempts must be positive",
		}
	}

	if cfg.AttemptDelay <= 0 {
		return &ValidationError{
			Field:   "retry_queue.attempt_delay",
			Message: "attempt delay must be positive",
		}
	}

	return nil
}
