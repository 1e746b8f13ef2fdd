package buildinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
		systemID  string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			version:   UnknownValue,
			buildDate: UnknownValue,
			systemID:  UnknownValue,
		},
		{
			name:      "empty values",
			ctx:       NewContext("", "", "etl-01"),
			version:   UnknownValue,
			buildDate: UnknownValue,
			systemID:  "etl-01",
		},
		{
			name:      "version with pre-release tag",
			ctx:       NewContext("1.2.0-rc.1", "2024-03-15T02:00:00Z", "etl-01"),
			version:   "1.2.0-rc.1",
			buildDate: "2024-03-15T02:00:00Z",
			systemID:  "etl-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.Version())
			assert.Equal(t, tt.buildDate, tt.ctx.BuildDate())
			assert.Equal(t, tt.systemID, tt.ctx.SystemID())
		})
	}
}

func TestNewContextDefaultsSystemIDToHostname(t *testing.T) {
	t.Parallel()

	host, err := os.Hostname()
	if err != nil || host == "" {
		t.Skip("host name unavailable")
	}
	assert.Equal(t, host, NewContext("1.0.0", "", "").SystemID())
}

func TestContextString(t *testing.T) {
	t.Parallel()

	ctx := NewContext("1.0.0", "2024-03-15", "etl-01")
	assert.Equal(t, "rqm-etl 1.0.0 (built 2024-03-15) on etl-01", ctx.String())
}
