package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/rqm-etl/internal/logger"
)

// decodeLines parses every JSON log line in buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("visible", logger.String("tenant", "job_verifsassuser_alpha"), logger.Int("rows", 3))
	log.Warn("warned")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "visible", entries[0]["msg"])
	assert.Equal(t, "job_verifsassuser_alpha", entries[0]["tenant"])
	assert.InDelta(t, 3, entries[0]["rows"], 0)
	assert.Equal(t, "WARN", entries[1]["level"])
}

func TestModuleAndWithAccumulateFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	runLog := base.Module("pipeline").With(logger.String("run_id", "abc"))
	tenantLog := runLog.Module("tenant").With(logger.String("tenant", "beta"))

	tenantLog.Error("selection failed", logger.Error(errors.New("unknown database")))
	runLog.Info("run finished")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "pipeline.tenant", entries[0]["module"])
	assert.Equal(t, "abc", entries[0]["run_id"])
	assert.Equal(t, "beta", entries[0]["tenant"])
	assert.Equal(t, "unknown database", entries[0]["error"])

	assert.Equal(t, "pipeline", entries[1]["module"])
	assert.NotContains(t, entries[1], "tenant", "child fields must not leak into parent")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelTrace, time.UTC)
	log.Trace("sql query")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "TRACE", entries[0]["level"])
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(t.Context(), "run-42")
	log.WithContext(ctx).Info("traced")
	log.WithContext(t.Context()).Info("untraced")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-42", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "etl.log")
	central, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "error"},
	})
	require.NoError(t, err)

	central.Module("pipeline").Debug("tenant started", logger.String("tenant", "alpha"))
	central.Module("datastore").Info("suppressed by module level")
	require.NoError(t, central.Flush())
	require.NoError(t, central.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "tenant started", entries[0]["msg"])
	assert.Equal(t, "pipeline", entries[0]["module"])
}

func TestCentralLoggerSubModuleLevels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "etl.log")
	central, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "error", "etl.upstream": "debug"},
	})
	require.NoError(t, err)

	etl := central.Module("etl")
	etl.Module("datastore").Warn("suppressed by datastore level")
	etl.Module("upstream").Debug("pool opened")
	etl.Module("pipeline").Debug("suppressed by inherited level")
	etl.Info("run finished")
	require.NoError(t, central.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 2)
	assert.Equal(t, "pool opened", entries[0]["msg"])
	assert.Equal(t, "etl.upstream", entries[0]["module"])
	assert.Equal(t, "run finished", entries[1]["msg"])
	assert.Equal(t, "etl", entries[1]["module"])
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGormLoggerAdapterTrace(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(buf, logger.LogLevelTrace, time.UTC), 50*time.Millisecond)
	ctx := t.Context()

	sqlFn := func() (string, int64) { return "INSERT INTO biases VALUES (...)", 1 }

	adapter.Trace(ctx, time.Now(), sqlFn, nil)
	adapter.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
	adapter.Trace(ctx, time.Now(), sqlFn, errors.New("database or disk is full"))
	adapter.Trace(ctx, time.Now(), sqlFn, gorm.ErrRecordNotFound)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "sql query", entries[0]["msg"])
	assert.Equal(t, "slow query", entries[1]["msg"])
	assert.Equal(t, "query error", entries[2]["msg"])
	assert.Equal(t, "database or disk is full", entries[2]["error"])
	assert.Equal(t, "sql query", entries[3]["msg"], "record not found is not an error")
}
