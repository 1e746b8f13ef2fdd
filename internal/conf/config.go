// config.go: settings struct for rqm-etl and the Load function that fills it from .env, config.yaml, environment and flags.
package conf

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/secrets"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// UpstreamSettings holds the MySQL/MariaDB server the tenants live on.
type UpstreamSettings struct {
	Host           string        // server hostname or address
	Port           int           // server port
	Username       string        // login user
	Password       string        // login password or ${VAR} reference, usually supplied through .env
	PasswordFile   string        // file holding the password, e.g. a Docker secret; wins over Password
	TenantPattern  string        // LIKE pattern tenant databases are discovered with
	ConnectTimeout time.Duration // dial timeout
	ReadTimeout    time.Duration // per-read I/O timeout, 0 disables
	SlowQuery      time.Duration // queries slower than this are logged at WARN
}

// JobSettings controls one ETL run.
type JobSettings struct {
	Date          string        // processing date, dd/mm/yyyy or "today"
	Concurrency   int           // tenants processed at once
	TenantTimeout time.Duration // deadline for one tenant
	Strict        bool          // exit non-zero when any tenant fails
}

// SQLiteSettings holds the local store location.
type SQLiteSettings struct {
	Path string // path to rqmData.db
}

// OutputSettings holds where results go.
type OutputSettings struct {
	SQLite SQLiteSettings
	Report string // optional YAML run report path
}

// PushgatewaySettings configures pushing run metrics to a Prometheus Pushgateway.
type PushgatewaySettings struct {
	Enabled bool
	URL     string
	Job     string
}

// MetricsSettings holds metrics export configuration.
type MetricsSettings struct {
	Pushgateway PushgatewaySettings
}

// NotificationSettings configures the run summary notification.
type NotificationSettings struct {
	Enabled       bool
	URLs          []string // shoutrrr service URLs
	OnlyOnFailure bool     // notify only when a tenant failed
	Title         string
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// TelemetrySettings holds error reporting configuration.
type TelemetrySettings struct {
	Sentry SentrySettings
}

// Settings contains all configuration options for rqm-etl.
type Settings struct {
	Debug bool // true to enable debug logging

	Upstream     UpstreamSettings
	Job          JobSettings
	Queries      QuerySettings
	Output       OutputSettings
	Logging      logger.LoggingConfig
	Metrics      MetricsSettings
	Notification NotificationSettings
	Telemetry    TelemetrySettings

	warnings []string
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads .env, the configuration file, environment variables and bound
// command line flags into a new Settings. An empty configFile searches the
// default locations; a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := initViper(configFile); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_viper").
			Build()
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if settings.Debug && settings.Logging.DefaultLevel == logger.DefaultLogLevel {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	settingsInstance = settings
	return settings, nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment are not overridden.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.New(fmt.Errorf("error loading %s: %w", path, err)).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// resolveSecrets replaces credential settings with their resolved values:
// ${VAR} references are expanded and the password file is read.
func resolveSecrets(s *Settings) error {
	password, err := secrets.Resolve(s.Upstream.PasswordFile, s.Upstream.Password)
	if err != nil {
		return err
	}
	if password.Insecure {
		s.warnings = append(s.warnings, fmt.Sprintf("upstream password file %s is readable by group or other", s.Upstream.PasswordFile))
	}
	s.Upstream.Password = password.Value

	if s.Telemetry.Sentry.DSN, err = secrets.ExpandString(s.Telemetry.Sentry.DSN); err != nil {
		return err
	}

	for i, u := range s.Notification.URLs {
		if s.Notification.URLs[i], err = secrets.ExpandString(u); err != nil {
			return err
		}
	}
	return nil
}

// Warnings returns non-fatal problems found while loading, for logging once
// the logger exists.
func (s *Settings) Warnings() []string {
	return s.warnings
}

// GetSettings returns the settings from the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ProcessingDate parses the configured job date. A missing date is a
// configuration error; runs never fall back to an implicit date.
func (s *Settings) ProcessingDate() (model.ProcessingDate, error) {
	if strings.TrimSpace(s.Job.Date) == "" {
		return model.ProcessingDate{}, errors.Newf("processing date is required: pass --date dd/mm/yyyy or set job.date").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	d, err := model.ParseProcessingDate(s.Job.Date)
	if err != nil {
		return model.ProcessingDate{}, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("date", s.Job.Date).
			Build()
	}
	return d, nil
}

// UpstreamConfig returns the upstream connection settings. maxOpenConns
// sizes the pool; callers pass concurrency + 1.
func (s *Settings) UpstreamConfig(maxOpenConns int) upstream.Config {
	return upstream.Config{
		Host:           s.Upstream.Host,
		Port:           s.Upstream.Port,
		Username:       s.Upstream.Username,
		Password:       s.Upstream.Password,
		TenantPattern:  s.Upstream.TenantPattern,
		ConnectTimeout: s.Upstream.ConnectTimeout,
		ReadTimeout:    s.Upstream.ReadTimeout,
		MaxOpenConns:   maxOpenConns,
		SlowQuery:      s.Upstream.SlowQuery,
	}
}

// LoggingConfig returns a copy of the logging configuration for the central logger.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	cfg := s.Logging
	if cfg.Console != nil {
		console := *cfg.Console
		cfg.Console = &console
	}
	if cfg.FileOutput != nil {
		file := *cfg.FileOutput
		cfg.FileOutput = &file
	}
	return &cfg
}
