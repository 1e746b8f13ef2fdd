// Package errors provides centralized error handling with optional telemetry integration.
//
// Errors are built with a fluent builder and carry a category from the ETL failure
// taxonomy, the component that raised them, and free-form context:
//
//	return errors.New(err).
//	    Component("upstream").
//	    Category(errors.CategoryTenantSelection).
//	    Context("tenant", tenant).
//	    Build()
//
// The category decides the blast radius of a failure, see IsFatal.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	// CategoryConnection means the upstream server or the local store could not be opened.
	CategoryConnection ErrorCategory = "connection"
	// CategoryDiscovery means the tenant listing query failed.
	CategoryDiscovery ErrorCategory = "tenant-discovery"
	// CategoryTenantSelection means switching the session to a tenant database failed.
	CategoryTenantSelection ErrorCategory = "tenant-selection"
	// CategoryQuery means an extraction query failed to execute or stream.
	CategoryQuery ErrorCategory = "query"
	// CategoryDecode means a single result cell could not be converted.
	CategoryDecode ErrorCategory = "decode"
	// CategoryStoreWrite means a row could not be appended to the local store.
	CategoryStoreWrite ErrorCategory = "store-write"

	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryIntegration   ErrorCategory = "integration"
	CategoryGeneric       ErrorCategory = "generic"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when no component was set on the builder.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where error occurred
	Category  ErrorCategory  // Error category for grouping and blast radius
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	reported  bool
	mu        sync.RWMutex
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the wrapped error
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// MarkReported marks this error as reported to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether this error has been reported
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unspecified error")
	}
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error.
// Unknown values fall back to medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	case "":
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", duration.Milliseconds())
	return eb
}

// Build creates the EnhancedError. A category found on a wrapped EnhancedError is
// inherited when none was set explicitly.
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.category == "" {
		eb.category = inheritCategory(eb.err)
	}
	if eb.component == "" {
		eb.component = ComponentUnknown
	}

	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

func inheritCategory(err error) ErrorCategory {
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}
	return CategoryGeneric
}

// IsFatal reports whether err aborts the whole run. Connection and discovery
// failures are fatal; every other category is contained to a tenant or a row.
func IsFatal(err error) bool {
	return IsCategory(err, CategoryConnection) ||
		IsCategory(err, CategoryDiscovery) ||
		IsCategory(err, CategoryConfiguration)
}

// Standard library passthrough functions

// NewStd creates a new standard error
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether any EnhancedError in err's tree has the given category.
// Joined errors are searched in full, not just the first match.
func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var enhancedErr *EnhancedError
	if stderrors.As(err, &enhancedErr) && enhancedErr.Category == category {
		return true
	}

	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsCategory(inner, category) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsCategory(e.Unwrap(), category)
	}
	return false
}

// CategoryOf returns the category of the first EnhancedError in err's tree,
// or CategoryGeneric when there is none.
func CategoryOf(err error) ErrorCategory {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) && enhancedErr.Category != "" {
		return enhancedErr.Category
	}
	return CategoryGeneric
}

// reporter holds the optional telemetry reporter. Reporting is explicit (Report),
// never a side effect of Build, so row-level decode errors never reach telemetry.
var reporter atomic.Pointer[TelemetryReporter]

// SetTelemetryReporter installs r as the telemetry reporter; nil disables reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	if r == nil {
		reporter.Store(nil)
		return
	}
	reporter.Store(&r)
}

// Report sends err to the configured telemetry reporter, if any.
// Errors that are not EnhancedErrors are wrapped as generic.
func Report(err error) {
	if err == nil {
		return
	}
	rp := reporter.Load()
	if rp == nil || !(*rp).IsEnabled() {
		return
	}

	var ee *EnhancedError
	if !As(err, &ee) {
		ee = New(err).Build()
	}
	(*rp).ReportError(ee)
}
