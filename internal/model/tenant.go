// Package model holds the values that flow through an ETL run: tenants, the
// processing date, the job context and the decoded metric records.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTenantPattern is the LIKE pattern tenant databases are discovered with.
const DefaultTenantPattern = "job_verifsassuser_%"

// Tenant is the name of one tenant database on the upstream server.
type Tenant string

func (t Tenant) String() string {
	return string(t)
}

// QuotedIdentifier returns the tenant name as a backtick-quoted MySQL identifier
// with embedded backticks doubled, safe to splice into a USE statement.
func (t Tenant) QuotedIdentifier() string {
	return "`" + strings.ReplaceAll(string(t), "`", "``") + "`"
}

// JobContext is fixed for the whole run and shared read-only by all tenants.
type JobContext struct {
	RunID     string
	Date      ProcessingDate
	StartedAt time.Time
}

// NewJobContext creates a job context with a fresh run id.
func NewJobContext(date ProcessingDate) JobContext {
	return JobContext{
		RunID:     uuid.NewString(),
		Date:      date,
		StartedAt: time.Now(),
	}
}
