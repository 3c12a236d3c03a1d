package migrate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

var pgTypes = map[string]string{
	"COUNTER":       "INTEGER",
	"AUTOINCREMENT": "INTEGER",
	"INTEGER":       "INTEGER",
	"INT":           "INTEGER",
	"LONG":          "INTEGER",
	"SMALLINT":      "SMALLINT",
	"BYTE":          "SMALLINT",
	"TINYINT":       "SMALLINT",
	"BIGINT":        "BIGINT",
	"REAL":          "REAL",
	"SINGLE":        "REAL",
	"DOUBLE":        "DOUBLE PRECISION",
	"FLOAT":         "DOUBLE PRECISION",
	"CURRENCY":      "NUMERIC(19,4)",
	"MONEY":         "NUMERIC(19,4)",
	"DECIMAL":       "NUMERIC",
	"NUMERIC":       "NUMERIC",
	"DATETIME":      "TIMESTAMP",
	"TIMESTAMP":     "TIMESTAMP",
	"DATE":          "DATE",
	"TIME":          "TIME",
	"BIT":           "BOOLEAN",
	"BOOLEAN":       "BOOLEAN",
	"YESNO":         "BOOLEAN",
	"LONGCHAR":      "TEXT",
	"MEMO":          "TEXT",
	"TEXT":          "TEXT",
	"LONGBINARY":    "BYTEA",
	"BINARY":        "BYTEA",
	"VARBINARY":     "BYTEA",
	"BLOB":          "BYTEA",
	"GUID":          "UUID",
}

// MirrorColumn maps a legacy column onto a Postgres column for a verbatim copy.
// VARCHAR keeps its length; unknown types become TEXT.
func MirrorColumn(col source.Column) storage.MirrorColumn {
	base, length := splitType(col.Type)
	if length == 0 {
		length = col.Length
	}
	out := storage.MirrorColumn{Name: col.Name, NotNull: !col.Nullable}

	switch base {
	case "VARCHAR", "CHAR", "NVARCHAR", "NCHAR":
		if length > 0 && length <= 10485760 {
			out.Type = fmt.Sprintf("VARCHAR(%d)", length)
		} else {
			out.Type = "TEXT"
		}
	default:
		t, ok := pgTypes[base]
		if !ok {
			t = "TEXT"
		}
		out.Type = t
	}
	if base == "COUNTER" || base == "AUTOINCREMENT" || col.Key {
		out.PrimaryKey = true
	}
	return out
}

// splitType separates "VARCHAR(120)" into its base name and length.
func splitType(dbType string) (string, int64) {
	dbType = strings.ToUpper(strings.TrimSpace(dbType))
	open := strings.IndexByte(dbType, '(')
	if open < 0 {
		return dbType, 0
	}
	base := strings.TrimSpace(dbType[:open])
	inner := strings.TrimSuffix(dbType[open+1:], ")")
	if comma := strings.IndexByte(inner, ','); comma >= 0 {
		inner = inner[:comma]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(inner), 10, 64)
	if err != nil {
		return base, 0
	}
	return base, n
}

// mirrorValue adapts a scanned legacy value to the column type it is copied into.
func mirrorValue(v any, pgType string) any {
	if v == nil {
		return nil
	}
	switch {
	case pgType == "BYTEA":
		if s, ok := v.(string); ok {
			return []byte(s)
		}
		return v
	case pgType == "BOOLEAN":
		return truthy(v)
	case pgType == "UUID":
		if b, ok := v.([]byte); ok && len(b) == 16 {
			if id, err := uuid.FromBytes(b); err == nil {
				return id
			}
		}
		id, err := uuid.Parse(strings.Trim(text(v), "{}"))
		if err != nil {
			return nil
		}
		return id
	case pgType == "TIMESTAMP" || pgType == "DATE":
		if t := optDate(v); t != nil {
			return *t
		}
		return nil
	case pgType == "TIME":
		if t, ok := v.(time.Time); ok {
			return t.Format("15:04:05")
		}
		return text(v)
	case pgType == "INTEGER" || pgType == "SMALLINT" || pgType == "BIGINT":
		n, err := intID(v)
		if err != nil {
			return nil
		}
		return n
	case strings.HasPrefix(pgType, "NUMERIC"):
		d, err := exactDecimal(v)
		if err != nil {
			return nil
		}
		return d
	case strings.HasPrefix(pgType, "VARCHAR") || pgType == "TEXT":
		if s, ok := v.(string); ok {
			return s
		}
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return text(v)
	default:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return v
	}
}

// exactDecimal parses a value without rounding, for verbatim copies.
func exactDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	default:
		return decimal.NewFromString(text(x))
	}
}
