// Package store is a thin database/sql wrapper per backend: it opens a
// *sql.DB for SQLite or PostgreSQL from a URL, and rewrites the
// engine-internal placeholder token into each dialect's bind syntax.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/schema"
)

// Placeholder is the reserved token SQL generated internally uses in place
// of a bind parameter; RewritePlaceholders turns it into `?` (SQLite) or
// `$1, $2, …` (PostgreSQL) at bind time. It is chosen to never occur
// inside quoted user data.
const Placeholder = "\x00VALVE_PARAM\x00"

// Store wraps a *sql.DB together with the dialect it speaks, plus
// placeholder rewriting and a default connection-pool cap (5 concurrent
// connections).
type Store struct {
	db *sql.DB
	Dialect schema.Dialect
}

// Open opens a database by URL, choosing the driver from its scheme:
// `sqlite://…` or a bare filesystem path for SQLite (default mode rwc),
// `postgresql://…` for PostgreSQL.
func Open(url string) (*Store, error) {
	driver, dsn, dialect, err := parseURL(url)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Database, fmt.Sprintf("opening %s database", dialect), err)
	}
	db.SetMaxOpenConns(5)
	return &Store{db: db, Dialect: dialect}, nil
}

func parseURL(url string) (driver, dsn string, dialect schema.Dialect, err error) {
	switch {
	case strings.HasPrefix(url, "postgresql://") || strings.HasPrefix(url, "postgres://"):
		return "postgres", url, schema.DialectPostgres, nil
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite", strings.TrimPrefix(url, "sqlite://")+"?mode=rwc", schema.DialectSQLite, nil
	case url == "":
		return "", "", 0, errs.Configf("empty database URL")
	default:
		// Bare filesystem path: SQLite, default mode rwc.
		return "sqlite", url + "?mode=rwc", schema.DialectSQLite, nil
	}
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Rewrite replaces every occurrence of Placeholder in sql with the
// dialect's bind syntax: `?` for SQLite, `$1, $2, …` for PostgreSQL.
func (s *Store) Rewrite(query string) string {
	return RewritePlaceholders(s.Dialect, query)
}

// RewritePlaceholders is the placeholder-rewriting rule, as a
// pure function of dialect and query text.
func RewritePlaceholders(dialect schema.Dialect, query string) string {
	if dialect == schema.DialectSQLite {
		return strings.ReplaceAll(query, Placeholder, "?")
	}
	var b strings.Builder
	n := 0
	for {
		idx := strings.Index(query, Placeholder)
		if idx < 0 {
			b.WriteString(query)
			break
		}
		b.WriteString(query[:idx])
		n++
		fmt.Fprintf(&b, "$%d", n)
		query = query[idx+len(Placeholder):]
	}
	return b.String()
}

// EnableUnsafeInitialLoad turns on SQLite's unsafe pragmas (journal off,
// synchronous off) for the duration of a bulk load; SQLite only.
// Callers must have already confirmed this interactively;
// it is a no-op for PostgreSQL.
func (s *Store) EnableUnsafeInitialLoad() error {
	if s.Dialect != schema.DialectSQLite {
		return nil
	}
	for _, pragma := range []string{"PRAGMA journal_mode = OFF", "PRAGMA synchronous = OFF"} {
		if _, err := s.db.Exec(pragma); err != nil {
			return errs.Wrap(errs.Database, "enabling unsafe initial-load pragmas", err)
		}
	}
	return nil
}
