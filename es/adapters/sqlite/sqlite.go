// Package sqlite adapts relational.Store to SQLite via
// modernc.org/sqlite, grounded on the teacher's own sqlite adapter
// (UNIQUE-constraint message matching, since modernc.org/sqlite does not
// expose a typed error like pq.Error/MySQLError) rewired onto the
// stream/index shape store.Adapter requires.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/getpup/foldstore/es/adapters/relational"
)

// Open opens a *sql.DB against path using modernc.org/sqlite's driver.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite only tolerates one writer at a time; serialize use of the
	// handle so Append's transaction never competes with itself across
	// goroutines for the same process.
	db.SetMaxOpenConns(1)
	return db, nil
}

// dialect implements relational.Dialect for SQLite.
type dialect struct{}

func (dialect) Name() string { return "sqlite" }

// Rebind is a no-op: SQLite uses "?" placeholders, the same convention
// relational.go's query templates are already written in.
func (dialect) Rebind(query string) string { return query }

func (dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
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
	_, err := db.Exec(relational.SQLiteSchema(table))
	return err
}
