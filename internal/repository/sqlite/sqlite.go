// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so there is no CGo and no C
// toolchain to install. The database is a single file next to the binary,
// or ":memory:" in tests.
//
// WHY sqlx ON TOP OF database/sql?
// sqlx keeps the database/sql API (the same *sql.DB pool underneath) but can
// scan rows straight into structs using `db:"..."` tags, including nested
// structs via dotted column aliases ("u.id"). The rep listing joins users
// and profiles into one row, which would otherwise be a 40-argument Scan.
//
// MIGRATIONS:
// The schema is owned by versioned SQL files under migrations/, embedded in
// the binary and applied by goose. Each file carries an Up and a Down
// section, so the schema can be moved in both directions (see cmd/remoctl).
package sqlite

import (
	"context"
	"database/sql/driver"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	// Also registers the "sqlite" driver with database/sql.
	msqlite "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func init() {
	// sqlx only knows "sqlite3" as a '?'-placeholder driver; teach it the
	// modernc driver name so Rebind and sqlx.In keep '?' as-is.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	msqlite.MustRegisterDeterministicScalarFunction("casefold", 1, casefold)
}

// CASE-INSENSITIVE MATCHING:
// SQLite's LOWER() and LIKE only fold ASCII, so "ÉMILE" never matches
// "émile". casefold(x) lowers with Go's Unicode tables instead; queries
// apply it to the column and the Go side applies fold to the value.
func casefold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return fold(v), nil
	case []byte:
		return fold(string(v)), nil
	default:
		return v, nil
	}
}

// fold is the Go half of casefold.
func fold(s string) string {
	return strings.ToLower(s)
}

// DB wraps the sqlx connection pool and implements every repository
// interface in package repository.
type DB struct {
	conn       *sqlx.DB
	migrations *goose.Provider
}

// New opens the database and migrates it to the latest schema version.
//
// dbPath examples:
//   - "data/remo.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.MigrateUp(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open opens the database without touching the schema. The migrate
// subcommands use it so they can move the schema in either direction.
func Open(dbPath string) (*DB, error) {
	// PRAGMAs in the DSN are applied by the driver to EVERY pooled
	// connection, not just the first one:
	//   foreign_keys(1)     → enforce REFERENCES / ON DELETE CASCADE
	//   busy_timeout(5000)  → wait for a writer instead of failing with SQLITE_BUSY
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a brand new, empty database.
	// Pinning the pool to one connection keeps the whole process on the
	// same in-memory database.
	if strings.HasPrefix(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	migrationsFS, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn.DB, migrationsFS)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: creating migration provider: %w", err)
	}

	return &DB{conn: conn, migrations: provider}, nil
}

// Conn exposes the pool for the request transaction middleware.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
