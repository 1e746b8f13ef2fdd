package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "rqmData.db")
	store, err := Open(t.Context(), path, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.EnsureSchema(t.Context()))
	return store
}

func ptr(v float64) *float64 { return &v }

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	date := model.MustParseProcessingDate("15/03/2024")

	require.NoError(t, store.AppendBias(t.Context(), date, &model.BiasRecord{RadarName: "R1", AntennaType: "PSR"}))
	require.NoError(t, store.EnsureSchema(t.Context()), "second call must not fail or recreate tables")

	got, err := store.Biases(t.Context(), date)
	require.NoError(t, err)
	assert.Len(t, got, 1, "existing rows survive")
}

func TestSchemaColumns(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	cases := map[string][]string{
		BiasTable: {"Radar_Name", "Antenna_Type", "Time_Bias", "Range_Bias", "Range_Gain", "Azimuth_Bias",
			"Range_Noise", "Azimuth_Noise", "Ecc_Value", "Ecc_Angle", "Job_Date"},
		DetectionRateTable: {"ds_name", "ds_type", "pdP", "pdS", "pdM", "pdPS", "pdPM", "Job_Date"},
	}
	for table, want := range cases {
		columnTypes, err := store.db.Migrator().ColumnTypes(table)
		require.NoError(t, err)

		names := make([]string, len(columnTypes))
		for i, c := range columnTypes {
			names[i] = c.Name()
		}
		assert.Equal(t, want, names, table)
	}
}

func TestAppendBiasRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	date := model.MustParseProcessingDate("5/1/2024")

	rec := model.BiasRecord{
		RadarName:    "RADAR_ALPHA",
		AntennaType:  "MODE_S",
		TimeBias:     0.12346,
		RangeBias:    model.MissingValue,
		RangeGain:    -9.26,
		AzimuthBias:  0.5,
		RangeNoise:   12.25,
		AzimuthNoise: 0.05,
		EccValue:     model.MissingValue,
		EccAngle:     359.99999,
	}
	require.NoError(t, store.AppendBias(t.Context(), date, &rec))

	got, err := store.Biases(t.Context(), date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])

	var jobDate string
	require.NoError(t, store.db.Raw("SELECT Job_Date FROM biases").Scan(&jobDate).Error)
	assert.Equal(t, "05/01/2024", jobDate, "Job_Date is zero padded dd/mm/yyyy")
}

func TestAppendDetectionRateStoresNull(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	date := model.MustParseProcessingDate("29/02/2024")

	rec := model.DetectionRateRecord{
		DSName: "DS_ALPHA",
		DSType: "2",
		PdP:    ptr(87.5),
		PdM:    ptr(0),
		PdPS:   ptr(100),
	}
	require.NoError(t, store.AppendDetectionRate(t.Context(), date, &rec))

	var pdS, pdPM sql.NullFloat64
	var dsType any
	row := store.db.Raw("SELECT pdS, pdPM, ds_type FROM detection_rates").Row()
	require.NoError(t, row.Scan(&pdS, &pdPM, &dsType))
	assert.False(t, pdS.Valid, "absent percentage is NULL, not -1")
	assert.False(t, pdPM.Valid)
	assert.Equal(t, int64(2), dsType, "numeric ds_type takes INTEGER affinity")

	got, err := store.DetectionRates(t.Context(), date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestAppendIsNotIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	date := model.MustParseProcessingDate("01/06/2024")
	rec := model.BiasRecord{RadarName: "R1", AntennaType: "SSR"}

	for range 2 {
		require.NoError(t, store.AppendBias(t.Context(), date, &rec))
	}

	got, err := store.Biases(t.Context(), date)
	require.NoError(t, err)
	assert.Len(t, got, 2, "appending the same record twice yields duplicates")
}

func TestAppendWithoutSchemaIsStoreWriteError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.db")
	store, err := Open(t.Context(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.AppendBias(t.Context(), model.MustParseProcessingDate("01/01/2024"), &model.BiasRecord{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryStoreWrite))
	assert.False(t, errors.IsFatal(err))
	assert.Equal(t, ReasonSchema, FailureReason(err))
}

func TestOpenUnusablePathIsConnectionError(t *testing.T) {
	t.Parallel()

	// a directory cannot be opened as a database file
	_, err := Open(t.Context(), t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConnection))
	assert.True(t, errors.IsFatal(err))
}

func TestAppendCancelledContext(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := store.AppendBias(ctx, model.MustParseProcessingDate("01/01/2024"), &model.BiasRecord{})
	require.Error(t, err)
	assert.Equal(t, ReasonCancelled, FailureReason(err))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := t.Context()

	jan := model.MustParseProcessingDate("31/01/2024")
	dec := model.MustParseProcessingDate("02/12/2023")

	require.NoError(t, store.AppendBias(ctx, jan, &model.BiasRecord{RadarName: "A"}))
	require.NoError(t, store.AppendBias(ctx, jan, &model.BiasRecord{RadarName: "B"}))
	require.NoError(t, store.AppendDetectionRate(ctx, dec, &model.DetectionRateRecord{DSName: "A"}))
	require.NoError(t, store.db.Exec("INSERT INTO biases (Radar_Name, Job_Date) VALUES ('X', '2024-01-01 00:00:00')").Error)

	got, err := store.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "02/12/2023", got[0].JobDate, "dates sort chronologically, not lexically")
	assert.Equal(t, int64(0), got[0].BiasRows)
	assert.Equal(t, int64(1), got[0].DetectionRateRows)

	assert.Equal(t, "31/01/2024", got[1].JobDate)
	assert.Equal(t, int64(2), got[1].BiasRows)

	assert.Equal(t, "2024-01-01 00:00:00", got[2].JobDate, "unparseable dates sort last")
}

func TestSeed(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	end := model.MustParseProcessingDate("10/01/2024")

	stats, err := store.Seed(t.Context(), end, 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, SeedStats{Days: 3, BiasRows: 18, DetectionRateRows: 9}, stats)

	summary, err := store.Summary(t.Context())
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "07/01/2024", summary[0].JobDate)
	assert.Equal(t, "09/01/2024", summary[2].JobDate)

	rates, err := store.DetectionRates(t.Context(), end.AddDays(-1))
	require.NoError(t, err)
	require.Len(t, rates, 3)
	for _, r := range rates {
		require.NotNil(t, r.PdP)
		assert.GreaterOrEqual(t, *r.PdP, 80.0)
		assert.LessOrEqual(t, *r.PdP, 100.0)
		assert.Contains(t, []string{"1", "2", "3"}, r.DSType)
	}

	_, err = store.Seed(t.Context(), end, 0, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ReasonTimeout},
		{sqlite3.Error{Code: sqlite3.ErrFull}, ReasonDiskFull},
		{sqlite3.Error{Code: sqlite3.ErrBusy}, ReasonLocked},
		{sqlite3.Error{Code: sqlite3.ErrReadonly}, ReasonReadonly},
		{sqlite3.Error{Code: sqlite3.ErrNotADB}, ReasonCorrupt},
		{sqlite3.Error{Code: sqlite3.ErrIoErr}, ReasonIO},
		{errors.NewStd("boom"), ReasonOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureReason(tt.err), "%v", tt.err)
	}
}

func TestDiskFullIsCritical(t *testing.T) {
	t.Parallel()

	err := writeError(sqlite3.Error{Code: sqlite3.ErrFull}, BiasTable)

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, errors.PriorityCritical, ee.Priority)
	assert.Equal(t, ReasonDiskFull, ee.GetContext()["reason"])
	assert.Equal(t, BiasTable, ee.GetContext()["table"])
}
