// Package datastore provides error handling helpers for database operations
package datastore

import (
	"context"

	"github.com/mattn/go-sqlite3"

	"github.com/tphakala/rqm-etl/internal/errors"
)

// Write failure reasons, also used as metric label values
const (
	ReasonDiskFull  = "disk_full"
	ReasonLocked    = "locked"
	ReasonReadonly  = "readonly"
	ReasonCorrupt   = "corrupt"
	ReasonIO        = "io"
	ReasonSchema    = "schema"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
	ReasonOther     = "other"
)

// dbError creates a categorized datastore error with context
func dbError(err error, category errors.ErrorCategory, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(category).
		Context("operation", operation)

	reason := FailureReason(err)
	if reason != ReasonOther {
		builder = builder.Context("reason", reason)
	}
	switch reason {
	case ReasonDiskFull, ReasonCorrupt:
		builder = builder.Priority(errors.PriorityCritical)
	case ReasonLocked, ReasonReadonly:
		builder = builder.Priority(errors.PriorityHigh)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// writeError is a store-write failure for one row of table.
func writeError(err error, table string) error {
	return dbError(err, errors.CategoryStoreWrite, "append", "table", table)
}

// FailureReason classifies a store error by its SQLite result code.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return ReasonOther
	}

	switch sqliteErr.Code {
	case sqlite3.ErrFull:
		return ReasonDiskFull
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return ReasonLocked
	case sqlite3.ErrReadonly, sqlite3.ErrPerm, sqlite3.ErrCantOpen:
		return ReasonReadonly
	case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
		return ReasonCorrupt
	case sqlite3.ErrIoErr:
		return ReasonIO
	case sqlite3.ErrError, sqlite3.ErrSchema:
		// "no such table" and column mismatches surface as generic SQLITE_ERROR
		return ReasonSchema
	default:
		return ReasonOther
	}
}
