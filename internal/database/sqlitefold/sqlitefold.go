// Package sqlitefold registers a SQLite driver whose lower() folds the full
// Unicode range, so case-insensitive search behaves the same as on Postgres.
package sqlitefold

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverName is the database/sql name of the folding driver.
const DriverName = "sqlite3_unicode_fold"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", Lower, true)
		},
	})
}

// Open returns a gorm dialector for dsn backed by the folding driver.
func Open(dsn string) gorm.Dialector {
	return sqlite.New(sqlite.Config{DriverName: DriverName, DSN: dsn})
}

// Lower mirrors SQLite's built-in lower() for NULL and non-text values and
// applies Unicode case folding to text.
func Lower(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return strings.ToLower(x)
	case []byte:
		return strings.ToLower(string(x))
	default:
		return fmt.Sprint(x)
	}
}
