// Package relational implements store.Adapter over a plain append-only SQL
// table, shared by the postgres, mysql, and sqlite adapter packages. Each
// of those packages supplies only a Dialect (placeholder rebinding and
// unique-violation detection) plus its own database/sql driver import; the
// per-dialect schema DDL (schema.go) and all read/write logic live here once.
//
// The spec's §6 reference describes a write_message stored procedure and
// get_stream_messages/get_last_stream_message functions. This package
// realizes the same optimistic-append contract with portable SQL instead
// of vendor-specific stored procedures, so the identical Store works
// unmodified across Postgres, MySQL, and SQLite — see DESIGN.md.
package relational

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
	"github.com/getpup/foldstore/internal/backoff"
)

// Dialect isolates the handful of things that differ across SQL backends:
// parameter placeholder syntax and how a driver reports a unique-constraint
// violation (our signal for store.ErrVersionConflict, mirroring the
// teacher's own per-dialect IsUniqueViolation helpers).
type Dialect interface {
	// Name identifies the dialect for error messages ("postgres", "mysql",
	// "sqlite").
	Name() string

	// Rebind rewrites a query written with "?" placeholders into this
	// dialect's native placeholder syntax (a no-op for mysql/sqlite,
	// "?"->"$1", "$2", ... for postgres).
	Rebind(query string) string

	// IsUniqueViolation reports whether err is the driver's way of
	// reporting that an INSERT collided with the table's
	// (category, stream_id, event_index) uniqueness constraint.
	IsUniqueViolation(err error) bool
}

// Config configures a Store. DB and Dialect are required; the rest have
// defaults matching store.Adapter's documented conventions.
type Config struct {
	DB      *sql.DB
	Dialect Dialect

	// EventsTable names the table Store reads and writes. Defaults to
	// "foldstore_events".
	EventsTable string

	// BatchSize is the page size for forward/backward reads. Defaults to
	// 500, matching spec §6's documented default.
	BatchSize int

	// MaxBatchReads caps the number of pages a single load may issue. 0
	// (the default) means unlimited.
	MaxBatchReads int

	// RetryPolicy governs retries of a read or append that fails with a
	// transient connection error (driver.ErrBadConn). Defaults to
	// backoff.DefaultPolicy. Once the policy's attempts are exhausted the
	// failing call returns store.ErrStoreUnavailable.
	RetryPolicy backoff.Policy
}

// Store is a store.Adapter backed by a single flat events table, keyed by
// (category, stream_id, event_index).
type Store struct {
	db            *sql.DB
	dialect       Dialect
	eventsTable   string
	batchSize     int
	maxBatchReads int
	retryPolicy   backoff.Policy
}

// New constructs a Store from cfg, applying defaults for zero-valued
// fields.
func New(cfg Config) *Store {
	table := cfg.EventsTable
	if table == "" {
		table = "foldstore_events"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	retryPolicy := cfg.RetryPolicy
	if retryPolicy == (backoff.Policy{}) {
		retryPolicy = backoff.DefaultPolicy
	}
	return &Store{
		db:            cfg.DB,
		dialect:       cfg.Dialect,
		eventsTable:   table,
		batchSize:     batchSize,
		maxBatchReads: cfg.MaxBatchReads,
		retryPolicy:   retryPolicy,
	}
}

// isTransient reports whether err is database/sql's standard signal that a
// connection was found to be bad after the fact, and the call is safe to
// retry against a fresh one.
func isTransient(err error) bool {
	return errors.Is(err, driver.ErrBadConn)
}

// withRetry runs fn until it succeeds, returns a non-transient error, or
// s.retryPolicy's attempt budget is exhausted, in which case it returns
// store.ErrStoreUnavailable wrapping the last transient error seen.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isTransient(err) {
			return err
		}
		ok, werr := s.retryPolicy.Wait(ctx, attempt)
		if werr != nil {
			return werr
		}
		if !ok {
			return fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
		}
	}
}

func (s *Store) BatchSize() int     { return s.batchSize }
func (s *Store) MaxBatchReads() int { return s.maxBatchReads }

// TokenEmpty implements store.Adapter.
func (s *Store) TokenEmpty() store.Token {
	return store.EmptyToken
}

// LoadForward implements store.Adapter.
func (s *Store) LoadForward(ctx context.Context, stream es.StreamName, fromIndex int64, _ bool) (int64, []es.TimelineEvent, error) {
	var version int64
	var events []es.TimelineEvent
	err := s.withRetry(ctx, func() error {
		var err error
		version, events, err = s.loadForwardOnce(ctx, stream, fromIndex)
		return err
	})
	return version, events, err
}

func (s *Store) loadForwardOnce(ctx context.Context, stream es.StreamName, fromIndex int64) (int64, []es.TimelineEvent, error) {
	version, err := s.currentVersion(ctx, s.db, stream)
	if err != nil {
		return 0, nil, fmt.Errorf("relational: load forward %s: %w", stream, err)
	}

	var events []es.TimelineEvent
	cursor := fromIndex
	batches := 0
	for {
		page, err := s.readPage(ctx, s.db, stream, cursor, s.batchSize)
		if err != nil {
			return 0, nil, fmt.Errorf("relational: load forward %s: %w", stream, err)
		}
		batches++
		if s.maxBatchReads > 0 && batches > s.maxBatchReads {
			return 0, nil, store.ErrBatchLimitExceeded
		}
		events = append(events, page...)
		if len(page) < s.batchSize {
			break
		}
		cursor = page[len(page)-1].Index + 1
	}
	return version, events, nil
}

// LoadBackwardUntil implements store.Adapter.
func (s *Store) LoadBackwardUntil(ctx context.Context, stream es.StreamName, _ bool, isOrigin store.OriginPredicate) (int64, []es.TimelineEvent, error) {
	var version int64
	var events []es.TimelineEvent
	err := s.withRetry(ctx, func() error {
		var err error
		version, events, err = s.loadBackwardUntilOnce(ctx, stream, isOrigin)
		return err
	})
	return version, events, err
}

func (s *Store) loadBackwardUntilOnce(ctx context.Context, stream es.StreamName, isOrigin store.OriginPredicate) (int64, []es.TimelineEvent, error) {
	version, err := s.currentVersion(ctx, s.db, stream)
	if err != nil {
		return 0, nil, fmt.Errorf("relational: load backward %s: %w", stream, err)
	}
	if version < 0 {
		return version, nil, nil
	}

	var collected []es.TimelineEvent
	upper := version
	batches := 0
	for {
		lower := upper - int64(s.batchSize) + 1
		if lower < 0 {
			lower = 0
		}
		page, err := s.readRange(ctx, s.db, stream, lower, upper)
		if err != nil {
			return 0, nil, fmt.Errorf("relational: load backward %s: %w", stream, err)
		}
		batches++
		if s.maxBatchReads > 0 && batches > s.maxBatchReads {
			return 0, nil, store.ErrBatchLimitExceeded
		}

		originAt := -1
		for i := len(page) - 1; i >= 0; i-- {
			ok, oerr := isOrigin(page[i])
			if oerr != nil {
				return 0, nil, oerr
			}
			if ok {
				originAt = i
				break
			}
		}
		if originAt >= 0 {
			collected = append(append([]es.TimelineEvent{}, page[originAt:]...), collected...)
			return version, collected, nil
		}
		collected = append(page, collected...)
		if lower == 0 {
			return version, collected, nil
		}
		upper = lower - 1
	}
}

// Append implements store.Adapter.
func (s *Store) Append(ctx context.Context, stream es.StreamName, expectedVersion store.ExpectedVersion, events []es.EventData) (int64, error) {
	if len(events) == 0 {
		return 0, store.ErrNoEvents
	}

	var newVersion int64
	err := s.withRetry(ctx, func() error {
		var err error
		newVersion, err = s.appendOnce(ctx, stream, expectedVersion, events)
		return err
	})
	return newVersion, err
}

func (s *Store) appendOnce(ctx context.Context, stream es.StreamName, expectedVersion store.ExpectedVersion, events []es.EventData) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("relational: append %s: begin: %w", stream, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	current, err := s.currentVersion(ctx, tx, stream)
	if err != nil {
		return 0, fmt.Errorf("relational: append %s: %w", stream, err)
	}

	if !expectedVersion.IsAny() {
		if expectedVersion.IsNoStream() {
			if current != -1 {
				return 0, store.ErrVersionConflict
			}
		} else if expectedVersion.StreamVersion() != current {
			return 0, store.ErrVersionConflict
		}
	}

	insertSQL := s.dialect.Rebind(fmt.Sprintf(
		`INSERT INTO %s (category, stream_id, event_index, event_id, event_type, data, metadata, correlation_id, causation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.eventsTable))

	now := time.Now().UTC()
	for i, ed := range events {
		idx := current + 1 + int64(i)
		_, err := tx.ExecContext(ctx, insertSQL,
			stream.Category, stream.StreamID, idx,
			ed.EventID.String(), ed.EventType, ed.Data, ed.Metadata,
			nullUUIDString(ed.CorrelationID), nullUUIDString(ed.CausationID), now,
		)
		if err != nil {
			if s.dialect.IsUniqueViolation(err) {
				return 0, store.ErrVersionConflict
			}
			return 0, fmt.Errorf("relational: append %s: insert event %d: %w", stream, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, store.ErrVersionConflict
		}
		return 0, fmt.Errorf("relational: append %s: commit: %w", stream, err)
	}

	return current + int64(len(events)), nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx: Store's read helpers
// run either against the pool directly or inside appendOnce's transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) currentVersion(ctx context.Context, q queryer, stream es.StreamName) (int64, error) {
	query := s.dialect.Rebind(fmt.Sprintf(
		`SELECT MAX(event_index) FROM %s WHERE category = ? AND stream_id = ?`, s.eventsTable))
	var version sql.NullInt64
	if err := q.QueryRowContext(ctx, query, stream.Category, stream.StreamID).Scan(&version); err != nil {
		return 0, err
	}
	if !version.Valid {
		return -1, nil
	}
	return version.Int64, nil
}

func (s *Store) readPage(ctx context.Context, q queryer, stream es.StreamName, fromIndex int64, limit int) ([]es.TimelineEvent, error) {
	query := s.dialect.Rebind(fmt.Sprintf(
		`SELECT event_index, event_id, event_type, data, metadata, correlation_id, causation_id, created_at
		 FROM %s WHERE category = ? AND stream_id = ? AND event_index >= ?
		 ORDER BY event_index ASC LIMIT ?`, s.eventsTable))
	rows, err := q.QueryContext(ctx, query, stream.Category, stream.StreamID, fromIndex, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) readRange(ctx context.Context, q queryer, stream es.StreamName, fromIndex, toIndex int64) ([]es.TimelineEvent, error) {
	query := s.dialect.Rebind(fmt.Sprintf(
		`SELECT event_index, event_id, event_type, data, metadata, correlation_id, causation_id, created_at
		 FROM %s WHERE category = ? AND stream_id = ? AND event_index >= ? AND event_index <= ?
		 ORDER BY event_index ASC`, s.eventsTable))
	rows, err := q.QueryContext(ctx, query, stream.Category, stream.StreamID, fromIndex, toIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]es.TimelineEvent, error) {
	var events []es.TimelineEvent
	for rows.Next() {
		var (
			evt                       es.TimelineEvent
			eventID                   string
			correlationID, causationID sql.NullString
		)
		if err := rows.Scan(&evt.Index, &eventID, &evt.EventType, &evt.Data, &evt.Metadata, &correlationID, &causationID, &evt.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		id, err := uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		evt.EventID = id
		evt.CorrelationID = parseNullUUID(correlationID)
		evt.CausationID = parseNullUUID(causationID)
		evt.Timestamp = evt.Timestamp.UTC()
		evt.Size = len(evt.Data) + len(evt.Metadata)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func nullUUIDString(id uuid.NullUUID) interface{} {
	if !id.Valid {
		return nil
	}
	return id.UUID.String()
}

func parseNullUUID(s sql.NullString) uuid.NullUUID {
	if !s.Valid {
		return uuid.NullUUID{}
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}
