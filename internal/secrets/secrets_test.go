package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rqm-etl/internal/errors"
)

func TestExpandString(t *testing.T) {
	t.Setenv("RQM_TEST_TOKEN", "tok123")
	t.Setenv("RQM_TEST_EMPTY", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "literal", input: "literal-value", want: "literal-value"},
		{name: "bare dollar is literal", input: "pa$$word", want: "pa$$word"},
		{name: "reference", input: "${RQM_TEST_TOKEN}", want: "tok123"},
		{name: "embedded reference", input: "telegram://${RQM_TEST_TOKEN}@telegram?chats=1", want: "telegram://tok123@telegram?chats=1"},
		{name: "fallback used", input: "${RQM_TEST_UNSET:-fallback}", want: "fallback"},
		{name: "empty fallback", input: "x${RQM_TEST_UNSET:-}y", want: "xy"},
		{name: "empty var uses fallback", input: "${RQM_TEST_EMPTY:-dflt}", want: "dflt"},
		{name: "unterminated", input: "abc${RQM_TEST_TOKEN", want: "abc${RQM_TEST_TOKEN"},
		{name: "missing", input: "${RQM_TEST_A}-${RQM_TEST_B}", wantErr: "RQM_TEST_A, RQM_TEST_B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeSecret(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("trims trailing newlines only", func(t *testing.T) {
		t.Parallel()
		s, err := ReadFile(writeSecret(t, " s3cret \r\n\n", 0o600))
		require.NoError(t, err)
		assert.Equal(t, " s3cret ", s.Value)
		assert.Equal(t, SourceFile, s.Source)
		assert.False(t, s.Insecure)
	})

	t.Run("world readable is flagged", func(t *testing.T) {
		t.Parallel()
		s, err := ReadFile(writeSecret(t, "s3cret", 0o644))
		require.NoError(t, err)
		assert.True(t, s.Insecure)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(writeSecret(t, "\n", 0o600))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		big := make([]byte, maxSecretFileSize+1)
		for i := range big {
			big[i] = 'x'
		}
		_, err := ReadFile(writeSecret(t, string(big), 0o600))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("RQM_TEST_PASSWORD", "from-env")
	file := writeSecret(t, "from-file\n", 0o600)

	tests := []struct {
		name       string
		filePath   string
		value      string
		want       string
		wantSource Source
	}{
		{"nothing", "", "", "", SourceNone},
		{"literal", "", "plain", "plain", SourceLiteral},
		{"env reference", "", "${RQM_TEST_PASSWORD}", "from-env", SourceEnv},
		{"file wins", file, "${RQM_TEST_PASSWORD}", "from-file", SourceFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(tt.filePath, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Value)
			assert.Equal(t, tt.wantSource, s.Source)
		})
	}
}
