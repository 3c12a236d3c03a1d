package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDialect is returned for a SOURCE_DIALECT this package cannot open.
var ErrUnknownDialect = errors.New("unknown source dialect")

// Dialect captures the SQL differences between legacy store engines.
type Dialect interface {
	Name() string
	DriverName() string
	// TablesQuery lists user tables as a single text column.
	TablesQuery() string
	Quote(ident string) string
	// Limit wraps a SELECT * so it returns at most n rows.
	Limit(table string, n int) string
}

// DialectFor resolves a dialect by name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "access", "odbc":
		return accessDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

type accessDialect struct{}

func (accessDialect) Name() string       { return "access" }
func (accessDialect) DriverName() string { return "odbc" }

// MSysObjects type 1 with flags 0 are local user tables.
func (accessDialect) TablesQuery() string {
	return "SELECT Name FROM MSysObjects WHERE Type = 1 AND Flags = 0"
}

func (accessDialect) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (d accessDialect) Limit(table string, n int) string {
	return fmt.Sprintf("SELECT TOP %d * FROM %s", n, d.Quote(table))
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) TablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
}

// SQLite accepts Access-style bracket quoting, which keeps legacy table names like
// "PAYMENT TABLE" addressable the same way in both engines.
func (sqliteDialect) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (d sqliteDialect) Limit(table string, n int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.Quote(table), n)
}
