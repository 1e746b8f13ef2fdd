package decode

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/model"
)

func TestOptionalFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		want    *float64
		wantErr bool
	}{
		{name: "nil", value: nil, want: nil},
		{name: "decimal bytes", value: []byte("87.50000"), want: ptr(87.5)},
		{name: "integer bytes", value: []byte("42"), want: ptr(42)},
		{name: "negative string", value: "-0.00125", want: ptr(-0.00125)},
		{name: "exponent", value: "1.5e2", want: ptr(150)},
		{name: "float64", value: 12.25, want: ptr(12.25)},
		{name: "float32", value: float32(0.5), want: ptr(0.5)},
		{name: "int64", value: int64(7), want: ptr(7)},
		{name: "int", value: 3, want: ptr(3)},
		{name: "uint64", value: uint64(9), want: ptr(9)},
		{name: "garbage text", value: []byte("n/a"), wantErr: true},
		{name: "empty text", value: "", wantErr: true},
		{name: "padded text", value: " 1.0", wantErr: true},
		{name: "hex float", value: "0x1p3", wantErr: true},
		{name: "underscore", value: "1_000", wantErr: true},
		{name: "nan text", value: "NaN", wantErr: true},
		{name: "inf text", value: "+Inf", wantErr: true},
		{name: "overflow", value: "1e400", wantErr: true},
		{name: "nan float", value: math.NaN(), wantErr: true},
		{name: "invalid utf8", value: []byte{0xff, 0xfe, '1'}, wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "time", value: time.Now(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := OptionalFloat(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryDecode))
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestFloatOrSentinel(t *testing.T) {
	t.Parallel()

	got, err := FloatOrSentinel(nil)
	require.NoError(t, err)
	assert.Equal(t, model.MissingValue, got, "absent value becomes the sentinel, never an error")

	got, err = FloatOrSentinel([]byte("0.123456789"))
	require.NoError(t, err)
	assert.InDelta(t, 0.12346, got, 1e-12)

	got, err = FloatOrSentinel(-1852.000004)
	require.NoError(t, err)
	assert.InDelta(t, -1852.0, got, 1e-12)

	_, err = FloatOrSentinel([]byte("abc"))
	require.Error(t, err)
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	got, err := Percentage([]byte("87.50000"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 87.5, *got, 1e-12)

	got, err = Percentage(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Percentage("100.0000")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, *got, 1e-12)

	_, err = Percentage("100.5")
	require.Error(t, err)

	_, err = Percentage(int64(-1))
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	t.Parallel()

	n, err := Count(int64(40))
	require.NoError(t, err)
	assert.Equal(t, int64(40), n)

	n, err = Count([]byte("12"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = Count(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Count("1.5")
	require.Error(t, err)

	_, err = Count(int64(-3))
	require.Error(t, err)
}

func TestRatio(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Ratio(0, 0), "zero denominator is no data, not NaN and not 100")
	assert.Nil(t, Ratio(5, 0))

	r := Ratio(35, 40)
	require.NotNil(t, r)
	assert.InDelta(t, 87.5, *r, 1e-12)

	r = Ratio(0, 10)
	require.NotNil(t, r)
	assert.Zero(t, *r)
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   any
		want    string
		wantErr bool
	}{
		{value: nil, want: ""},
		{value: "RADAR_ALPHA", want: "RADAR_ALPHA"},
		{value: []byte("MODE_S"), want: "MODE_S"},
		{value: int64(2), want: "2"},
		{value: int32(3), want: "3"},
		{value: 4, want: "4"},
		{value: uint64(5), want: "5"},
		{value: 1.5, want: "1.5"},
		{value: []byte{0xc3, 0x28}, wantErr: true},
		{value: false, wantErr: true},
	}

	for _, tt := range tests {
		got, err := Text(tt.value)
		if tt.wantErr {
			require.Error(t, err, "value %#v", tt.value)
			continue
		}
		require.NoError(t, err, "value %#v", tt.value)
		assert.Equal(t, tt.want, got)
	}
}

func TestRound5(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.23457, Round5(1.234567), 1e-12)
	assert.InDelta(t, -0.00001, Round5(-0.0000149), 1e-12)
	assert.InDelta(t, 5.0, Round5(5), 1e-12)
}

func ptr(f float64) *float64 {
	return &f
}
