// Package mysql adapts relational.Store to MySQL via
// go-sql-driver/mysql, grounded on the teacher's own mysql adapter
// (IsUniqueViolation-by-MySQLError-number detection) rewired onto the
// stream/index shape store.Adapter requires.
package mysql

import (
	"database/sql"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/getpup/foldstore/es/adapters/relational"
)

// Open opens a *sql.DB against dsn using go-sql-driver/mysql's driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	return db, nil
}

// dialect implements relational.Dialect for MySQL.
type dialect struct{}

func (dialect) Name() string { return "mysql" }

// Rebind is a no-op: MySQL uses "?" placeholders, the same convention
// relational.go's query templates are already written in.
func (dialect) Rebind(query string) string { return query }

func (dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // ER_DUP_ENTRY
	}
	return false
}

// New constructs a store.Adapter backed by db.
func New(db *sql.DB, cfg relational.Config) *relational.Store {
	cfg.DB = db
	cfg.Dialect = dialect{}
	return relational.New(cfg)
}

// EnsureSchema creates the events table if it does not already exist.
func EnsureSchema(db *sql.DB, table string) error {
	if table == "" {
		table = "foldstore_events"
	}
	_, err := db.Exec(relational.MySQLSchema(table))
	return err
}
