package database

import (
	"fmt"
	"strings"
)

// Dialect captures the few places where the supported SQL backends disagree.
type Dialect struct {
	// Name of the database/sql driver.
	DriverName string
	// Column definition of an auto-incrementing integer primary key.
	SerialPrimaryKey string
}

var (
	PostgresDialect = Dialect{
		DriverName:       "postgres",
		SerialPrimaryKey: "SERIAL PRIMARY KEY",
	}
	SqliteDialect = Dialect{
		DriverName:       "sqlite3",
		SerialPrimaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL",
	}
)

// ParseDatabaseURL maps a connection URL onto a dialect and the data source
// name handed to the driver. Postgres URLs are passed through verbatim.
func ParseDatabaseURL(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return PostgresDialect, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		return SqliteDialect, sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite3://")), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return SqliteDialect, sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite://")), nil
	case strings.HasPrefix(databaseURL, "file:"):
		return SqliteDialect, sqliteDSN(databaseURL), nil
	}
	return Dialect{}, "", fmt.Errorf("unsupported database URL %q", databaseURL)
}

// SQLite only enforces REFERENCES clauses when asked to.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
