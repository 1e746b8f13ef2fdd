package upstream

import (
	"context"
	"database/sql/driver"

	"github.com/go-sql-driver/mysql"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

// MySQL server error numbers that mean the tenant database cannot be selected
const (
	erDBAccessDenied = 1044 // ER_DBACCESS_DENIED_ERROR
	erAccessDenied   = 1045 // ER_ACCESS_DENIED_ERROR
	erBadDB          = 1049 // ER_BAD_DB_ERROR
)

// upstreamError builds a categorized error for an upstream operation.
// Driver messages are scrubbed because some echo the connection string.
func upstreamError(err error, category errors.ErrorCategory, operation string, context ...any) error {
	builder := errors.New(err).
		Component("upstream").
		Category(timeoutCategory(err, category)).
		Context("operation", operation)

	if number, ok := mysqlErrorNumber(err); ok {
		builder = builder.Context("mysql_error", number)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// connectionError is fatal: the server cannot be reached or refuses the credentials.
func connectionError(err error, cfg *Config) error {
	priority := errors.PriorityHigh
	if number, ok := mysqlErrorNumber(err); ok && number == erAccessDenied {
		priority = errors.PriorityCritical
	}
	return errors.New(scrubbed(err)).
		Component("upstream").
		Category(errors.CategoryConnection).
		Priority(priority).
		Context("operation", "connect").
		Context("dsn", cfg.SanitizedDSN()).
		Build()
}

// selectionError is recoverable: only the affected tenant is skipped.
func selectionError(err error, tenant model.Tenant) error {
	reason := "select_failed"
	if number, ok := mysqlErrorNumber(err); ok {
		switch number {
		case erBadDB:
			reason = "unknown_database"
		case erDBAccessDenied:
			reason = "access_denied"
		}
	} else if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		reason = "connection_lost"
	}
	return upstreamError(err, errors.CategoryTenantSelection, "select_tenant",
		"tenant", tenant.String(),
		"reason", reason)
}

func mysqlErrorNumber(err error) (uint16, bool) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number, true
	}
	return 0, false
}

// timeoutCategory reports deadline and cancellation errors under their own
// categories so a slow tenant is not mistaken for a broken query.
func timeoutCategory(err error, fallback errors.ErrorCategory) errors.ErrorCategory {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		return errors.CategoryCancellation
	default:
		return fallback
	}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

func scrubbed(err error) error {
	return &scrubbedError{msg: logger.RedactSensitiveData(err.Error()), err: err}
}
