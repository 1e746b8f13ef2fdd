// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

import (
	"fmt"
	"os"
)

// UnknownValue is reported for metadata the build did not inject
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is injected at startup through -ldflags and never read from config.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext creates a build context. An empty systemID falls back to the
// host name.
func NewContext(version, buildDate, systemID string) *Context {
	if systemID == "" {
		systemID, _ = os.Hostname()
	}
	return &Context{
		version:   version,
		buildDate: buildDate,
		systemID:  systemID,
	}
}

// Version returns the Git version tag from build
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the time when the binary was built
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// SystemID identifies the host running the job. It labels pushed metrics
// and error reports.
func (c *Context) SystemID() string {
	if c == nil || c.systemID == "" {
		return UnknownValue
	}
	return c.systemID
}

// String formats the context for the version command
func (c *Context) String() string {
	return fmt.Sprintf("rqm-etl %s (built %s) on %s", c.Version(), c.BuildDate(), c.SystemID())
}
