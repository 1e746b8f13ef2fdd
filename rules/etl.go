//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdlibErrors flags errors built with the standard library errors package
// outside internal/errors and internal/logger. Errors leaving a component
// carry a category so the driver can tell tenant failures from fatal ones.
//
// Old pattern:
//
//	return errors.New("selection failed")
//
// New pattern:
//
//	return errors.Newf("selection failed").
//	    Component("upstream").
//	    Category(errors.CategoryTenantSelection).
//	    Build()
func StdlibErrors(m dsl.Matcher) {
	m.Match(`errors.New($msg)`).
		Where(
			m.File().Imports("errors") &&
				!m.File().PkgPath.Matches(`internal/(errors|logger)$`) &&
				!m.File().Name.Matches(`_test\.go$`),
		).
		Report("use internal/errors so the error carries a category")
}

// SQLConcatenation flags queries assembled by string concatenation on raw
// connections. The only identifier spliced into SQL is a tenant name, and it
// must go through Tenant.QuotedIdentifier.
//
// Old pattern:
//
//	conn.ExecContext(ctx, "USE "+name)
//
// New pattern:
//
//	conn.ExecContext(ctx, "USE "+tenant.QuotedIdentifier())
func SQLConcatenation(m dsl.Matcher) {
	m.Match(
		`$db.ExecContext($ctx, $a + $b, $*_)`,
		`$db.QueryContext($ctx, $a + $b, $*_)`,
		`$db.Exec($a + $b, $*_)`,
		`$db.Query($a + $b, $*_)`,
	).
		Where(
			(m["db"].Type.Is("*sql.Conn") || m["db"].Type.Is("*sql.DB")) &&
				!m["b"].Text.Matches(`QuotedIdentifier\(\)$`) &&
				!m.File().Name.Matches(`_test\.go$`),
		).
		Report("do not build SQL by concatenation; use placeholders or Tenant.QuotedIdentifier()")
}

// StdlibLogging flags the log and log/slog package-level loggers. Output
// goes through internal/logger so module levels and redaction apply.
func StdlibLogging(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatal($*_)`,
	).
		Where(m.File().Imports("log")).
		Report("use internal/logger instead of the standard log package")

	m.Match(
		`slog.Info($*_)`,
		`slog.Warn($*_)`,
		`slog.Error($*_)`,
		`slog.Debug($*_)`,
	).
		Where(m.File().Imports("log/slog") && !m.File().PkgPath.Matches(`internal/logger$`)).
		Report("use a module logger from internal/logger instead of the slog default logger")
}

// TestingContext detects context.Background() or context.TODO() in tests
// and suggests t.Context(), which is cancelled when the test ends and lets
// goleak see goroutines that ignore cancellation.
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() instead of $$ in tests (Go 1.24+)")
}
