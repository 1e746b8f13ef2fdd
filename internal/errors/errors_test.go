package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuildInheritsCategory(t *testing.T) {
	t.Parallel()

	inner := New(fmt.Errorf("unknown database")).
		Component("upstream").
		Category(CategoryTenantSelection).
		Build()

	outer := New(fmt.Errorf("tenant beta: %w", inner)).Component("pipeline").Build()

	assert.Equal(t, CategoryTenantSelection, outer.Category)
	assert.Equal(t, "pipeline", outer.Component)
}

func TestIsCategorySearchesJoinedErrors(t *testing.T) {
	t.Parallel()

	query := New(fmt.Errorf("bias query failed")).Category(CategoryQuery).Build()
	store := New(fmt.Errorf("disk full")).Category(CategoryStoreWrite).Build()

	joined := Join(query, fmt.Errorf("wrapped: %w", store))

	assert.True(t, IsCategory(joined, CategoryQuery))
	assert.True(t, IsCategory(joined, CategoryStoreWrite))
	assert.False(t, IsCategory(joined, CategoryDecode))
	assert.False(t, IsCategory(nil, CategoryDecode))
	assert.Equal(t, CategoryQuery, CategoryOf(joined))
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category ErrorCategory
		fatal    bool
	}{
		{CategoryConnection, true},
		{CategoryDiscovery, true},
		{CategoryConfiguration, true},
		{CategoryTenantSelection, false},
		{CategoryQuery, false},
		{CategoryDecode, false},
		{CategoryStoreWrite, false},
		{CategoryTimeout, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			t.Parallel()
			err := New(fmt.Errorf("boom")).Category(tt.category).Build()
			assert.Equal(t, tt.fatal, IsFatal(err))
		})
	}
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityHigh, New(fmt.Errorf("x")).Priority(PriorityHigh).Build().Priority)
	assert.Equal(t, PriorityMedium, New(fmt.Errorf("x")).Priority("urgent").Build().Priority)
	assert.Empty(t, New(fmt.Errorf("x")).Priority("").Build().Priority)
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	err := New(fmt.Errorf("no such table")).Category(CategoryQuery).Build()
	assert.ErrorIs(t, err, &EnhancedError{Category: CategoryQuery})
	assert.NotErrorIs(t, err, &EnhancedError{Category: CategoryDecode})
}

func TestBasicScrub(t *testing.T) {
	t.Parallel()

	msg := basicScrub("dial etl:s3cr3t@tcp(db:3306)/ failed, see https://hooks.example.com/x?token=abc")
	assert.NotContains(t, msg, "s3cr3t")
	assert.NotContains(t, msg, "token=abc")
	assert.Contains(t, msg, "etl:[REDACTED]@tcp(db:3306)")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).
		Component("upstream").
		Category(CategoryTenantSelection).
		Timing("select_tenant", time.Second).
		Build()

	assert.Equal(t, "Upstream Tenant Selection Error Select Tenant", generateErrorTitle(ee))
}

// Not parallel: installs the global Sentry hub and reporter.
func TestSentryReporterCapturesScrubbedEvent(t *testing.T) {
	var captured []*sentry.Event

	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured = append(captured, event)
			return nil
		},
	}))
	SetTelemetryReporter(NewSentryReporter(true))
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	err := New(fmt.Errorf("access denied for etl:hunter2@tcp(db:3306)/")).
		Component("upstream").
		Category(CategoryConnection).
		Build()

	Report(err)
	Report(err) // already reported, must not produce a second event

	require.Len(t, captured, 1)
	assert.Equal(t, sentry.LevelFatal, captured[0].Level)
	assert.NotContains(t, captured[0].Message, "hunter2")
	assert.True(t, err.IsReported())
}
