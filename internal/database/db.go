package database

import (
	"database/sql"
)

// Queryable is the union of the sqlx methods our stores rely on; both
// *sqlx.DB and *sqlx.Tx satisfy it, allowing store methods to run either
// standalone or as part of a wider transaction.
type Queryable interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Select(dest interface{}, query string, args ...interface{}) error
	Get(dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}
