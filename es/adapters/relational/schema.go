package relational

import "fmt"

// PostgresSchema returns the DDL for table, suitable for lib/pq.
func PostgresSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    category       TEXT NOT NULL,
    stream_id      TEXT NOT NULL,
    event_index    BIGINT NOT NULL,
    event_id       UUID NOT NULL UNIQUE,
    event_type     TEXT NOT NULL,
    data           BYTEA NOT NULL,
    metadata       BYTEA,
    correlation_id UUID,
    causation_id   UUID,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (category, stream_id, event_index)
);`, table)
}

// MySQLSchema returns the DDL for table, suitable for go-sql-driver/mysql.
func MySQLSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    category       VARCHAR(255) NOT NULL,
    stream_id      VARCHAR(255) NOT NULL,
    event_index    BIGINT NOT NULL,
    event_id       CHAR(36) NOT NULL,
    event_type     VARCHAR(255) NOT NULL,
    data           BLOB NOT NULL,
    metadata       BLOB,
    correlation_id CHAR(36),
    causation_id   CHAR(36),
    created_at     DATETIME(6) NOT NULL,

    PRIMARY KEY (category, stream_id, event_index),
    UNIQUE KEY uq_event_id (event_id)
) ENGINE=InnoDB;`, table)
}

// SQLiteSchema returns the DDL for table, suitable for modernc.org/sqlite.
func SQLiteSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    category       TEXT NOT NULL,
    stream_id      TEXT NOT NULL,
    event_index    INTEGER NOT NULL,
    event_id       TEXT NOT NULL UNIQUE,
    event_type     TEXT NOT NULL,
    data           BLOB NOT NULL,
    metadata       BLOB,
    correlation_id TEXT,
    causation_id   TEXT,
    created_at     TEXT NOT NULL,

    PRIMARY KEY (category, stream_id, event_index)
);`, table)
}
