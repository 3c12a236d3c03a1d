// Package source reads the legacy desktop database through database/sql.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
)

// KnownTables are the legacy tables the migration understands. They are used when the
// engine refuses catalog access (Access denies MSysObjects to most users).
var KnownTables = []string{"Users", "client", "ITEMS", "LOANS", "PAYMENT TABLE", "EXPENDITURE", "defaulted items"}

// knownKeys maps lower-cased legacy table names to their key column. Access reports
// AutoNumber keys as plain INTEGER, so keys are not recoverable from the driver.
var knownKeys = map[string]string{
	"users":         "ID",
	"client":        "ID NUMBER",
	"items":         "ITEMID",
	"loans":         "LOANID",
	"payment table": "PAYMENTID",
	"expenditure":   "ID",
}

// inferSampleSize is how many rows are read to guess the type of an undescribed column.
const inferSampleSize = 20

// unknownType marks a column whose type could be neither described nor inferred.
const unknownType = "UNKNOWN"

// Row is one legacy record, addressed by column position.
type Row []any

// At returns the value at position i, or nil when the row is shorter.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

// Column describes one legacy column.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Length   int64  `yaml:"length,omitempty"`
	Nullable bool   `yaml:"nullable"`
	Key      bool   `yaml:"key,omitempty"`
}

// RowSet is a fully read table.
type RowSet struct {
	Table   string
	Columns []string
	Rows    []Row
}

// Reader is a read-only handle on the legacy store.
type Reader struct {
	db      *sql.DB
	dialect Dialect
	catalog columnDescriber
}

// Open connects to the legacy store and verifies the connection.
func Open(ctx context.Context, dialectName, dsn string) (*Reader, error) {
	dialect, err := DialectFor(dialectName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", dialect.Name(), err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s source: %w", dialect.Name(), err)
	}
	r := New(db, dialect)
	if dialect.Name() == "access" {
		r.catalog = newODBCCatalog(dsn)
	}
	return r, nil
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect) *Reader {
	return &Reader{db: db, dialect: dialect}
}

// Close releases the connection.
func (r *Reader) Close() error {
	if r.catalog != nil {
		r.catalog.close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Dialect reports the engine in use.
func (r *Reader) Dialect() Dialect {
	return r.dialect
}

// Tables lists user tables, skipping MSys* system tables, sorted by name.
func (r *Reader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.TablesQuery())
	if err != nil {
		if r.dialect.Name() == "access" {
			logger.CtxWarn(ctx, "MSysObjects not readable; listing known legacy tables only",
				slog.String("error", err.Error()),
				slog.Any("known_tables", KnownTables))
			return r.presentKnownTables(ctx), nil
		}
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if strings.HasPrefix(name, "MSys") {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

func (r *Reader) presentKnownTables(ctx context.Context) []string {
	var tables []string
	for _, name := range KnownTables {
		if _, err := r.Count(ctx, name); err == nil {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables
}

// Columns returns column metadata for table without reading its rows. Types the
// driver leaves blank are filled from the ODBC catalog when one is open, then inferred
// from sampled values. Known legacy key columns are flagged.
func (r *Reader) Columns(ctx context.Context, table string) ([]Column, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", r.dialect.Quote(table))
	cols, err := r.driverColumns(ctx, table, query)
	if err != nil {
		return nil, err
	}
	if untyped(cols) && r.catalog != nil {
		described, err := r.catalog.describe(query)
		switch {
		case err != nil:
			logger.CtxWarn(ctx, "ODBC describe failed; inferring column types from data",
				slog.String("table", table), slog.String("error", err.Error()))
		case len(described) != len(cols):
			logger.CtxWarn(ctx, "ODBC describe returned a different column count",
				slog.String("table", table), slog.Int("driver", len(cols)), slog.Int("catalog", len(described)))
		default:
			for i := range cols {
				if cols[i].Type == "" {
					cols[i] = described[i]
				}
			}
		}
	}
	if untyped(cols) {
		if err := r.inferTypes(ctx, table, cols); err != nil {
			return nil, err
		}
	}
	markKeys(table, cols)
	return cols, nil
}

func (r *Reader) driverColumns(ctx context.Context, table, query string) ([]Column, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	cols := make([]Column, 0, len(types))
	for _, ct := range types {
		col := Column{Name: ct.Name(), Type: strings.ToUpper(ct.DatabaseTypeName()), Nullable: true}
		if length, ok := ct.Length(); ok {
			col.Length = length
		}
		if nullable, ok := ct.Nullable(); ok {
			col.Nullable = nullable
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// inferTypes names each untyped column after the first non-null value in a sample.
func (r *Reader) inferTypes(ctx context.Context, table string, cols []Column) error {
	set, err := r.Sample(ctx, table, inferSampleSize)
	if err != nil {
		return fmt.Errorf("infer %s column types: %w", table, err)
	}
	for i := range cols {
		if cols[i].Type != "" {
			continue
		}
		for _, row := range set.Rows {
			if v := row.At(i); v != nil {
				cols[i].Type = valueType(v)
				break
			}
		}
		if cols[i].Type == "" {
			cols[i].Type = unknownType
		}
	}
	logger.CtxDebug(ctx, "inferred column types from sample",
		slog.String("table", table), slog.Int("rows", len(set.Rows)))
	return nil
}

func valueType(v any) string {
	switch v := v.(type) {
	case bool:
		return "BIT"
	case int8, uint8, int16:
		return "SMALLINT"
	case int32:
		return "INTEGER"
	case int64, int:
		return "BIGINT"
	case float32:
		return "REAL"
	case float64:
		return "DOUBLE"
	case time.Time:
		return "DATETIME"
	case []byte:
		if utf8.Valid(v) {
			return "LONGCHAR"
		}
		return "LONGBINARY"
	default:
		return "LONGCHAR"
	}
}

func untyped(cols []Column) bool {
	for _, c := range cols {
		if c.Type == "" {
			return true
		}
	}
	return false
}

func markKeys(table string, cols []Column) {
	key, ok := knownKeys[strings.ToLower(table)]
	if !ok {
		return
	}
	for i := range cols {
		if strings.EqualFold(cols[i].Name, key) {
			cols[i].Key = true
		}
	}
}

// Rows reads every record of table.
func (r *Reader) Rows(ctx context.Context, table string) (*RowSet, error) {
	return r.query(ctx, table, fmt.Sprintf("SELECT * FROM %s", r.dialect.Quote(table)))
}

// Sample reads at most n records of table.
func (r *Reader) Sample(ctx context.Context, table string, n int) (*RowSet, error) {
	return r.query(ctx, table, r.dialect.Limit(table, n))
}

func (r *Reader) query(ctx context.Context, table, query string) (*RowSet, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s columns: %w", table, err)
	}
	set := &RowSet{Table: table, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		set.Rows = append(set.Rows, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return set, nil
}

// Count returns the number of records in table.
func (r *Reader) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.dialect.Quote(table))).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
