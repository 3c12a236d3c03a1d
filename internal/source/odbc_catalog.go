package source

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/alexbrainman/odbc"
	"github.com/alexbrainman/odbc/api"
)

// sqlNoNulls is the SQLDescribeCol nullability code for NOT NULL columns.
const sqlNoNulls = 0

// columnDescriber reports result column metadata for a query without running it.
type columnDescriber interface {
	describe(query string) ([]Column, error)
	close()
}

// odbcCatalog describes columns over its own ODBC connection. The database/sql driver
// calls SQLDescribeCol internally but keeps the answer unexported, so rows.ColumnTypes
// carries names only.
type odbcCatalog struct {
	dsn string

	mu  sync.Mutex
	env api.SQLHANDLE
	dbc api.SQLHANDLE
	up  bool
}

func newODBCCatalog(dsn string) *odbcCatalog {
	return &odbcCatalog{dsn: dsn}
}

func (c *odbcCatalog) connect() error {
	if c.up {
		return nil
	}
	var env api.SQLHANDLE
	if ret := api.SQLAllocHandle(api.SQL_HANDLE_ENV, api.SQLHANDLE(api.SQL_NULL_HANDLE), &env); odbc.IsError(ret) {
		return fmt.Errorf("allocate odbc environment: return code %d", ret)
	}
	if ret := api.SQLSetEnvUIntPtrAttr(api.SQLHENV(env), api.SQL_ATTR_ODBC_VERSION, api.SQL_OV_ODBC3, 0); odbc.IsError(ret) {
		err := odbc.NewError("SQLSetEnvUIntPtrAttr", api.SQLHENV(env))
		api.SQLFreeHandle(api.SQL_HANDLE_ENV, env)
		return err
	}
	var dbc api.SQLHANDLE
	if ret := api.SQLAllocHandle(api.SQL_HANDLE_DBC, env, &dbc); odbc.IsError(ret) {
		err := odbc.NewError("SQLAllocHandle", api.SQLHENV(env))
		api.SQLFreeHandle(api.SQL_HANDLE_ENV, env)
		return err
	}
	dsn := api.StringToUTF16(c.dsn)
	ret := api.SQLDriverConnect(api.SQLHDBC(dbc), 0,
		(*api.SQLWCHAR)(unsafe.Pointer(&dsn[0])), api.SQL_NTS,
		nil, 0, nil, api.SQL_DRIVER_NOPROMPT)
	if odbc.IsError(ret) {
		err := odbc.NewError("SQLDriverConnect", api.SQLHDBC(dbc))
		api.SQLFreeHandle(api.SQL_HANDLE_DBC, dbc)
		api.SQLFreeHandle(api.SQL_HANDLE_ENV, env)
		return err
	}
	c.env, c.dbc, c.up = env, dbc, true
	return nil
}

// describe prepares query and reads each result column's declared type.
func (c *odbcCatalog) describe(query string) ([]Column, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		return nil, err
	}

	var out api.SQLHANDLE
	if ret := api.SQLAllocHandle(api.SQL_HANDLE_STMT, c.dbc, &out); odbc.IsError(ret) {
		return nil, odbc.NewError("SQLAllocHandle", api.SQLHDBC(c.dbc))
	}
	defer api.SQLFreeHandle(api.SQL_HANDLE_STMT, out)
	h := api.SQLHSTMT(out)

	q := api.StringToUTF16(query)
	if ret := api.SQLPrepare(h, (*api.SQLWCHAR)(unsafe.Pointer(&q[0])), api.SQL_NTS); odbc.IsError(ret) {
		return nil, odbc.NewError("SQLPrepare", h)
	}
	var n api.SQLSMALLINT
	if ret := api.SQLNumResultCols(h, &n); odbc.IsError(ret) {
		return nil, odbc.NewError("SQLNumResultCols", h)
	}

	name := make([]uint16, 256)
	cols := make([]Column, 0, int(n))
	for i := 1; i <= int(n); i++ {
		var nameLen, sqlType, digits, nullable api.SQLSMALLINT
		var size api.SQLULEN
		ret := api.SQLDescribeCol(h, api.SQLUSMALLINT(i),
			(*api.SQLWCHAR)(unsafe.Pointer(&name[0])), api.SQLSMALLINT(len(name)),
			&nameLen, &sqlType, &size, &digits, &nullable)
		if odbc.IsError(ret) {
			return nil, odbc.NewError("SQLDescribeCol", h)
		}
		l := int(nameLen)
		if l > len(name) {
			l = len(name)
		}
		typ, length := accessType(sqlType, int64(size), int(digits))
		cols = append(cols, Column{
			Name:     api.UTF16ToString(name[:l]),
			Type:     typ,
			Length:   length,
			Nullable: nullable != sqlNoNulls,
		})
	}
	return cols, nil
}

func (c *odbcCatalog) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.up {
		return
	}
	api.SQLDisconnect(api.SQLHDBC(c.dbc))
	api.SQLFreeHandle(api.SQL_HANDLE_DBC, c.dbc)
	api.SQLFreeHandle(api.SQL_HANDLE_ENV, c.env)
	c.up = false
}

// accessType names an ODBC SQL type the way Access declares it. The Access driver
// reports CURRENCY as NUMERIC(19,4). Unrecognised codes return an empty name.
func accessType(sqlType api.SQLSMALLINT, size int64, digits int) (string, int64) {
	switch sqlType {
	case api.SQL_BIT:
		return "BIT", 0
	case api.SQL_TINYINT:
		return "BYTE", 0
	case api.SQL_SMALLINT:
		return "SMALLINT", 0
	case api.SQL_INTEGER:
		return "INTEGER", 0
	case api.SQL_BIGINT:
		return "BIGINT", 0
	case api.SQL_REAL:
		return "REAL", 0
	case api.SQL_FLOAT, api.SQL_DOUBLE:
		return "DOUBLE", 0
	case api.SQL_NUMERIC, api.SQL_DECIMAL:
		if size == 19 && digits == 4 {
			return "CURRENCY", 0
		}
		return "DECIMAL", 0
	case api.SQL_TYPE_TIMESTAMP:
		return "DATETIME", 0
	case api.SQL_TYPE_DATE:
		return "DATE", 0
	case api.SQL_TYPE_TIME:
		return "TIME", 0
	case api.SQL_GUID:
		return "GUID", 0
	case api.SQL_CHAR, api.SQL_VARCHAR, api.SQL_WCHAR, api.SQL_WVARCHAR:
		return "VARCHAR", size
	case api.SQL_LONGVARCHAR, api.SQL_WLONGVARCHAR:
		return "LONGCHAR", 0
	case api.SQL_BINARY, api.SQL_VARBINARY:
		return "VARBINARY", 0
	case api.SQL_LONGVARBINARY:
		return "LONGBINARY", 0
	default:
		return "", 0
	}
}
