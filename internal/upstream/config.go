// Package upstream talks to the MySQL/MariaDB server that hosts the tenant
// databases: it opens the shared pool, discovers tenants and hands out
// per-tenant sessions pinned to a single connection.
package upstream

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/tphakala/rqm-etl/internal/model"
)

// Config holds upstream connection parameters
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	TenantPattern  string        // LIKE pattern for tenant database names
	ConnectTimeout time.Duration // dial timeout
	ReadTimeout    time.Duration // per-read I/O timeout, 0 disables
	MaxOpenConns   int           // pool size, at least concurrency+1
	SlowQuery      time.Duration // queries slower than this are logged at WARN
}

func (c *Config) pattern() string {
	if c.TenantPattern == "" {
		return model.DefaultTenantPattern
	}
	return c.TenantPattern
}

// driverConfig builds the go-sql-driver configuration. No database is selected
// in the DSN; every tenant session selects its own.
func (c *Config) driverConfig() *mysql.Config {
	dc := mysql.NewConfig()
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.User = c.Username
	dc.Passwd = c.Password
	dc.Timeout = c.ConnectTimeout
	dc.ReadTimeout = c.ReadTimeout
	dc.Collation = "utf8mb4_general_ci"
	dc.InterpolateParams = true
	return dc
}

// DSN returns the driver data source name including the password.
func (c *Config) DSN() string {
	return c.driverConfig().FormatDSN()
}

// SanitizedDSN returns the DSN with the password masked for logging.
func (c *Config) SanitizedDSN() string {
	dc := c.driverConfig()
	if dc.Passwd != "" {
		dc.Passwd = "****"
	}
	return dc.FormatDSN()
}
