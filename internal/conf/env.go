// env.go - Environment variable configuration and validation for rqm-etl
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/rqm-etl/internal/model"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Upstream server
		{"upstream.host", "RQM_UPSTREAM_HOST", validateEnvHost},
		{"upstream.port", "RQM_UPSTREAM_PORT", validateEnvPort},
		{"upstream.username", "RQM_UPSTREAM_USERNAME", nil},
		{"upstream.password", "RQM_UPSTREAM_PASSWORD", nil},
		{"upstream.passwordfile", "RQM_UPSTREAM_PASSWORD_FILE", validateEnvNotBlank},

		// Local store
		{"output.sqlite.path", "RQM_SQLITE_PATH", validateEnvNotBlank},

		// Job
		{"job.date", "RQM_JOB_DATE", validateEnvDate},
		{"job.concurrency", "RQM_JOB_CONCURRENCY", validateEnvConcurrency},

		{"debug", "RQM_DEBUG", validateEnvBool},
		{"telemetry.sentry.dsn", "RQM_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvHost(value string) error {
	if strings.ContainsAny(value, " /@") {
		return fmt.Errorf("host must be a hostname or address, got '%s'", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvNotBlank(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value must not be blank")
	}
	return nil
}

func validateEnvDate(value string) error {
	_, err := model.ParseProcessingDate(value)
	return err
}

func validateEnvConcurrency(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid concurrency: %w", err)
	}
	if n < 1 || n > maxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", maxConcurrency, n)
	}
	return nil
}
