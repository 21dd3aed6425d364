package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the configuration is usable for the current environment
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is not set")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBPassword == "" && GetEnvironment() == Production {
			errors = append(errors, "DB_PASSWORD is required in production")
		}
	case "sqlite":
		if cfg.DBName == "" {
			errors = append(errors, "DB_NAME (sqlite path) is not set")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errors, "; "))
	}

	return nil
}
