// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("upstream.host", "localhost")
	viper.SetDefault("upstream.port", 3306)
	viper.SetDefault("upstream.username", "")
	viper.SetDefault("upstream.password", "")
	viper.SetDefault("upstream.passwordfile", "")
	viper.SetDefault("upstream.tenantpattern", model.DefaultTenantPattern)
	viper.SetDefault("upstream.connecttimeout", 10*time.Second)
	viper.SetDefault("upstream.readtimeout", 0)
	viper.SetDefault("upstream.slowquery", 30*time.Second)

	viper.SetDefault("job.date", "")
	viper.SetDefault("job.concurrency", 1)
	viper.SetDefault("job.tenanttimeout", 10*time.Minute)
	viper.SetDefault("job.strict", false)

	viper.SetDefault("queries.bias", "")
	viper.SetDefault("queries.biasfile", "")
	viper.SetDefault("queries.detectionrate", "")
	viper.SetDefault("queries.detectionratefile", "")
	viper.SetDefault("queries.detectionratelayout", LayoutPercentages)

	viper.SetDefault("output.sqlite.path", "rqmData.db")
	viper.SetDefault("output.report", "")

	viper.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", logger.DefaultLogPath)
	viper.SetDefault("logging.fileoutput.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.modulelevels", map[string]string{})

	viper.SetDefault("metrics.pushgateway.enabled", false)
	viper.SetDefault("metrics.pushgateway.url", "")
	viper.SetDefault("metrics.pushgateway.job", "rqm_etl")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.onlyonfailure", true)
	viper.SetDefault("notification.title", "rqm-etl")

	viper.SetDefault("telemetry.sentry.enabled", false)
	viper.SetDefault("telemetry.sentry.dsn", "")
	viper.SetDefault("telemetry.sentry.environment", "production")
}
