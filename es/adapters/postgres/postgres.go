// Package postgres adapts relational.Store to PostgreSQL via lib/pq,
// grounded directly on the teacher's own postgres adapter (database
// handle, functional-option StoreConfig, IsUniqueViolation-by-pq.Error
// detection) but rewired onto the stream/index shape store.Adapter
// requires instead of the teacher's aggregate/global-position shape.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq" // also registers the "postgres" database/sql driver

	"github.com/getpup/foldstore/es/adapters/relational"
)

// Open opens a *sql.DB against dsn using lib/pq's driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return db, nil
}

// dialect implements relational.Dialect for PostgreSQL.
type dialect struct{}

func (dialect) Name() string { return "postgres" }

func (dialect) Rebind(query string) string { return rebindDollar(query) }

func (dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}

// New constructs a store.Adapter backed by db. It does not create the
// events table; call EnsureSchema for that.
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
	_, err := db.Exec(relational.PostgresSchema(table))
	return err
}

// rebindDollar rewrites "?" placeholders into Postgres's "$1", "$2", ...
// form.
func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
