package source

import (
	_ "github.com/alexbrainman/odbc"
	_ "github.com/mattn/go-sqlite3"
)
