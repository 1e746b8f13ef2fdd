// Package runtime holds the state shared by all commands once configuration
// has been loaded: settings, build metadata, the central logger and the
// error telemetry hook.
package runtime

import (
	"sync"
	"time"

	"github.com/tphakala/rqm-etl/internal/buildinfo"
	"github.com/tphakala/rqm-etl/internal/conf"
	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
)

// sentryFlushTimeout bounds how long Close waits for queued error reports
const sentryFlushTimeout = 5 * time.Second

// Context is created once in main and passed to every command.
type Context struct {
	Build    *buildinfo.Context
	Settings *conf.Settings

	mu          sync.Mutex
	logs        *logger.CentralLogger
	flushSentry func(time.Duration)
}

// NewContext creates an uninitialized context. Init must be called before
// Settings is used.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Init loads configuration, creates the central logger and, when enabled,
// starts Sentry reporting.
func (c *Context) Init(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	logs, err := logger.NewCentralLogger(settings.LoggingConfig())
	if err != nil {
		return errors.New(err).
			Component("runtime").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_logger").
			Build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Settings = settings
	c.logs = logs

	errors.SetPrivacyScrubber(logger.RedactSensitiveData)

	for _, w := range settings.Warnings() {
		logs.Module("conf").Warn(w)
	}

	sentryCfg := settings.Telemetry.Sentry
	if sentryCfg.Enabled && sentryCfg.DSN != "" {
		flush, err := errors.InitSentry(sentryCfg.DSN, c.Build.Version(), sentryCfg.Environment)
		if err != nil {
			// error telemetry is optional; the job runs without it
			logs.Module("runtime").Warn("sentry disabled", logger.Error(err))
		} else {
			c.flushSentry = flush
		}
	}

	return nil
}

// Logger returns a logger for module. Before Init it discards everything.
func (c *Context) Logger(module string) logger.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logs == nil {
		return logger.NewNopLogger()
	}
	return c.logs.Module(module)
}

// Close flushes error reports and closes the log file.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flushSentry != nil {
		c.flushSentry(sentryFlushTimeout)
		c.flushSentry = nil
	}
	if c.logs == nil {
		return nil
	}
	err := c.logs.Close()
	c.logs = nil
	return err
}
