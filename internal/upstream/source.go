package upstream

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
	"github.com/tphakala/rqm-etl/internal/model"
)

const (
	defaultMaxOpenConns = 2
	connMaxIdleTime     = 5 * time.Minute
)

// Rows is the cursor returned by a query. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier runs an opaque query text and returns its cursor.
type Querier interface {
	Query(ctx context.Context, query string) (Rows, error)
}

// Source is the shared upstream connection pool.
type Source struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config Config
	logger logger.Logger
}

// Open connects to the upstream server and verifies the connection.
// Any failure here is a connection error and fatal for the run.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Source, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Module("upstream")

	log.Debug("connecting to upstream", logger.String("address", cfg.SanitizedDSN()))

	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, cfg.SlowQuery),
	})
	if err != nil {
		return nil, connectionError(err, &cfg)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, connectionError(err, &cfg)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, connectionError(err, &cfg)
	}

	log.Info("connected to upstream",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.Int("max_open_conns", maxOpen))

	return &Source{db: db, sqlDB: sqlDB, config: cfg, logger: log}, nil
}

// Discover lists tenant databases matching the configured LIKE pattern in the
// order the server returns them.
func (s *Source) Discover(ctx context.Context) ([]model.Tenant, error) {
	pattern := s.config.pattern()
	start := time.Now()

	rows, err := s.db.WithContext(ctx).Raw("SHOW DATABASES LIKE " + quoteLiteral(pattern)).Rows()
	if err != nil {
		return nil, discoveryError(err, pattern)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, discoveryError(err, pattern)
		}
		tenants = append(tenants, model.Tenant(name))
	}
	if err := rows.Err(); err != nil {
		return nil, discoveryError(err, pattern)
	}

	s.logger.Info("discovered tenants",
		logger.String("pattern", pattern),
		logger.Int("count", len(tenants)),
		logger.Duration("elapsed", time.Since(start)))

	return tenants, nil
}

// OpenSession reserves a dedicated pooled connection and selects tenant on it.
// The USE statement only affects that connection, and every session issues it
// before any query, so a connection reused from the pool never leaks another
// tenant's selection into this one.
func (s *Source) OpenSession(ctx context.Context, tenant model.Tenant) (*Session, error) {
	conn, err := s.sqlDB.Conn(ctx)
	if err != nil {
		return nil, selectionError(err, tenant)
	}

	if _, err := conn.ExecContext(ctx, "USE "+tenant.QuotedIdentifier()); err != nil {
		_ = conn.Close()
		return nil, selectionError(err, tenant)
	}

	s.logger.Debug("tenant selected", logger.String("tenant", tenant.String()))
	return &Session{conn: conn, tenant: tenant, logger: s.logger}, nil
}

// Close releases the pool.
func (s *Source) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	if err := s.sqlDB.Close(); err != nil {
		return upstreamError(err, errors.CategoryConnection, "close")
	}
	s.logger.Debug("upstream connection closed")
	return nil
}

// Session is a connection pinned to one tenant database.
type Session struct {
	conn   *sql.Conn
	tenant model.Tenant
	logger logger.Logger
}

// Tenant returns the database this session selected.
func (s *Session) Tenant() model.Tenant {
	return s.tenant
}

// Query runs query on the session's connection.
func (s *Session) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, upstreamError(err, errors.CategoryQuery, "query", "tenant", s.tenant.String())
	}
	return rows, nil
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("release session for %s: %w", s.tenant, err)
	}
	return nil
}

func discoveryError(err error, pattern string) error {
	return upstreamError(err, errors.CategoryDiscovery, "discover_tenants", "pattern", pattern)
}

// quoteLiteral renders s as a single-quoted MySQL string literal.
func quoteLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
