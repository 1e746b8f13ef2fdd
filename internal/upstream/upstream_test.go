package upstream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/model"
)

func testConfig() Config {
	return Config{
		Host:           "db.example.internal",
		Port:           3307,
		Username:       "etl",
		Password:       "s3cr3t",
		ConnectTimeout: 5 * time.Second,
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	dsn := cfg.DSN()

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "etl", parsed.User)
	assert.Equal(t, "s3cr3t", parsed.Passwd)
	assert.Equal(t, "db.example.internal:3307", parsed.Addr)
	assert.Empty(t, parsed.DBName, "no database is selected at connect time")
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestSanitizedDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	sanitized := cfg.SanitizedDSN()

	assert.NotContains(t, sanitized, "s3cr3t")
	assert.Contains(t, sanitized, "etl:****@tcp(db.example.internal:3307)")

	cfg.Password = ""
	assert.NotContains(t, cfg.SanitizedDSN(), "****")
}

func TestIPv6Address(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Host = "::1"
	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "[::1]:3307", parsed.Addr)
}

func TestPatternDefault(t *testing.T) {
	t.Parallel()

	var cfg Config
	assert.Equal(t, model.DefaultTenantPattern, cfg.pattern())

	cfg.TenantPattern = "job_other_%"
	assert.Equal(t, "job_other_%", cfg.pattern())
}

func TestQuoteLiteral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `'job_verifsassuser_%'`, quoteLiteral("job_verifsassuser_%"))
	assert.Equal(t, `'it\'s'`, quoteLiteral("it's"))
	assert.Equal(t, `'a\\b'`, quoteLiteral(`a\b`))
}

func TestSelectionErrorReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"unknown database", &mysql.MySQLError{Number: erBadDB, Message: "Unknown database 'x'"}, "unknown_database"},
		{"access denied", &mysql.MySQLError{Number: erDBAccessDenied, Message: "Access denied"}, "access_denied"},
		{"bad connection", mysql.ErrInvalidConn, "connection_lost"},
		{"other", fmt.Errorf("boom"), "select_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := selectionError(tt.err, model.Tenant("job_verifsassuser_beta"))
			require.True(t, errors.IsCategory(err, errors.CategoryTenantSelection))
			assert.False(t, errors.IsFatal(err))

			var ee *errors.EnhancedError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.reason, ee.GetContext()["reason"])
			assert.Equal(t, "job_verifsassuser_beta", ee.GetContext()["tenant"])
		})
	}
}

func TestTimeoutCategory(t *testing.T) {
	t.Parallel()

	err := upstreamError(fmt.Errorf("query: %w", context.DeadlineExceeded), errors.CategoryQuery, "query")
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))

	err = upstreamError(context.Canceled, errors.CategoryQuery, "query")
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))

	err = upstreamError(fmt.Errorf("syntax"), errors.CategoryQuery, "query")
	assert.True(t, errors.IsCategory(err, errors.CategoryQuery))
}

func TestConnectionErrorIsFatalAndScrubbed(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	err := connectionError(fmt.Errorf("dial etl:s3cr3t@tcp(db.example.internal:3307)/: refused"), &cfg)

	assert.True(t, errors.IsFatal(err))
	assert.NotContains(t, err.Error(), "s3cr3t")

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.PriorityHigh, ee.Priority)
	assert.NotContains(t, ee.GetContext()["dsn"], "s3cr3t")

	err = connectionError(&mysql.MySQLError{Number: erAccessDenied, Message: "Access denied for user"}, &cfg)
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.PriorityCritical, ee.Priority)
}

func TestOpenFailsFastOnUnreachableServer(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Host:           "127.0.0.1",
		Port:           1, // nothing listens here
		Username:       "etl",
		ConnectTimeout: 500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src, err := Open(ctx, cfg, nil)
	require.Error(t, err)
	assert.Nil(t, src)
	assert.True(t, errors.IsCategory(err, errors.CategoryConnection))
}
