// Package sqlstore persists series, transactions and budget periods in PostgreSQL or SQLite.
// Queries are written once with $N placeholders and rebound for SQLite.
package sqlstore

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	driver string
}

// NewDB creates a new database connection
// For postgres, dsn should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=recurring sslmode=disable"
// For sqlite, dsn is a file path.
func NewDB(driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: driver}, nil
}

// Driver returns the driver name the connection was opened with
func (db *DB) Driver() string {
	return db.driver
}

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// rebind converts $N placeholders to the driver's syntax
func (db *DB) rebind(query string) string {
	if db.driver == DriverSQLite {
		return dollarParam.ReplaceAllString(query, "?$1")
	}
	return query
}

// forUpdate rebinds a single-row read issued inside a transaction and locks the row on PostgreSQL.
// SQLite serializes writers through the database lock, so its query is left unlocked.
func (db *DB) forUpdate(query string) string {
	if db.driver == DriverPostgres {
		return query + " FOR UPDATE"
	}
	return db.rebind(query)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
