// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

// maxConcurrency caps parallel tenants; each holds one upstream connection.
const maxConcurrency = 64

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. The processing date
// is checked for format only; commands that need it require it separately.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateUpstreamSettings,
		validateJobSettings,
		validateQuerySettings,
		validateOutputSettings,
		validateLoggingSettings,
		validateMetricsSettings,
		validateNotificationSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateUpstreamSettings(s *Settings) error {
	u := &s.Upstream
	switch {
	case strings.TrimSpace(u.Host) == "":
		return fmt.Errorf("upstream host must not be empty")
	case u.Port < 1 || u.Port > 65535:
		return fmt.Errorf("upstream port must be between 1 and 65535, got %d", u.Port)
	case u.ConnectTimeout < 0 || u.ReadTimeout < 0:
		return fmt.Errorf("upstream timeouts must not be negative")
	case u.TenantPattern != "" && !strings.ContainsAny(u.TenantPattern, "%_"):
		// a pattern without wildcards matches at most one database
		return fmt.Errorf("upstream tenant pattern %q has no LIKE wildcard", u.TenantPattern)
	}
	return nil
}

func validateJobSettings(s *Settings) error {
	j := &s.Job
	if j.Concurrency < 1 || j.Concurrency > maxConcurrency {
		return fmt.Errorf("job concurrency must be between 1 and %d, got %d", maxConcurrency, j.Concurrency)
	}
	if j.TenantTimeout < 0 {
		return fmt.Errorf("job tenant timeout must not be negative")
	}
	if j.Date != "" {
		if _, err := model.ParseProcessingDate(j.Date); err != nil {
			return fmt.Errorf("job date: %w", err)
		}
	}
	return nil
}

func validateQuerySettings(s *Settings) error {
	layout := strings.ToLower(s.Queries.DetectionRateLayout)
	if layout != "" && layout != LayoutPercentages && layout != LayoutCounts {
		return fmt.Errorf("queries detection rate layout must be %q or %q, got %q",
			LayoutPercentages, LayoutCounts, s.Queries.DetectionRateLayout)
	}
	return nil
}

func validateOutputSettings(s *Settings) error {
	if strings.TrimSpace(s.Output.SQLite.Path) == "" {
		return fmt.Errorf("output sqlite path must not be empty")
	}
	return nil
}

func validateLoggingSettings(s *Settings) error {
	valid := map[string]bool{
		string(logger.LogLevelTrace): true,
		string(logger.LogLevelDebug): true,
		string(logger.LogLevelInfo):  true,
		string(logger.LogLevelWarn):  true,
		string(logger.LogLevelError): true,
	}
	if lvl := strings.ToLower(s.Logging.DefaultLevel); lvl != "" && !valid[lvl] {
		return fmt.Errorf("logging level %q is not one of trace, debug, info, warn, error", s.Logging.DefaultLevel)
	}
	for module, lvl := range s.Logging.ModuleLevels {
		if !valid[strings.ToLower(lvl)] {
			return fmt.Errorf("logging level %q for module %s is not valid", lvl, module)
		}
	}
	return nil
}

func validateMetricsSettings(s *Settings) error {
	pg := &s.Metrics.Pushgateway
	if !pg.Enabled {
		return nil
	}
	if err := validateURL(pg.URL); err != nil {
		return fmt.Errorf("metrics pushgateway url: %w", err)
	}
	if pg.Job == "" {
		return fmt.Errorf("metrics pushgateway job must not be empty")
	}
	return nil
}

func validateNotificationSettings(s *Settings) error {
	n := &s.Notification
	if n.Enabled && len(n.URLs) == 0 {
		return fmt.Errorf("notification is enabled but no urls are configured")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
