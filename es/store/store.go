// Package store defines the storage-adapter contract: per-backend
// read/write primitives over a named stream. category.Category turns these
// primitives into "load current state" and "transact a decision"; it never
// talks to a backend directly.
package store

import (
	"context"
	"errors"

	"github.com/getpup/foldstore/es"
)

var (
	// ErrVersionConflict is returned by Append when expectedVersion does
	// not match the stream's current version. No events were persisted.
	// category.Category answers it with a Reload, and decider.Decider's
	// decide loop recovers locally by reloading and re-deciding; it is not
	// meant to propagate past that loop.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrStreamTruncated is returned by LoadForward when the requested
	// fromIndex falls before the earliest event a compacting backend still
	// retains. Only backends that allow compaction of the raw log (as
	// opposed to writing unfolds alongside it) can return this.
	ErrStreamTruncated = errors.New("store: stream truncated before requested index")

	// ErrBatchLimitExceeded is returned by a load when completing the read
	// would exceed the adapter's configured MaxBatchReads. This is fatal,
	// not a retryable condition.
	ErrBatchLimitExceeded = errors.New("store: batch read limit exceeded")

	// ErrNoEvents is returned by Append when called with zero events.
	ErrNoEvents = errors.New("store: no events to append")

	// ErrStoreUnavailable is returned once an adapter's own retry budget
	// for a transient connection failure (a dropped connection, a timed
	// out dial) has been exhausted. category.Category does not retry
	// this itself; it surfaces category.ErrStoreUnavailable to the
	// caller.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

// OriginPredicate decides, while reading backward, whether a decoded event
// is an "origin" — a point from which state can be correctly reconstituted
// without reading anything earlier. LoadBackwardUntil includes the
// matching event and everything after it; it discards everything before.
// It returns an error only when decoding the event hit a terminal
// failure; the adapter aborts the scan and propagates that error as-is.
type OriginPredicate func(es.TimelineEvent) (bool, error)

// Adapter is the contract a storage backend must satisfy. Two reference
// implementations ship in this module: adapters/relational (an
// append-only relational store over portable SQL) and
// adapters/document (a tip/calf document store).
//
// A single stream's operations are expected to be serialized by the
// caller; category.Category never issues two in-flight operations against
// the same stream itself, but makes no attempt to fence other callers.
type Adapter interface {
	// LoadForward returns every event at or after fromIndex, in ascending
	// order. version is the stream's last index after the read (-1 for an
	// empty stream). requireLeader asks the backend to serve the read from
	// a strongly consistent replica when it has a choice.
	LoadForward(ctx context.Context, stream es.StreamName, fromIndex int64, requireLeader bool) (version int64, events []es.TimelineEvent, err error)

	// LoadBackwardUntil reads backward in batches until a decoded event
	// satisfies isOrigin, then returns everything from that event forward
	// in ascending order. If no event satisfies isOrigin, it returns the
	// full stream from index 0.
	LoadBackwardUntil(ctx context.Context, stream es.StreamName, requireLeader bool, isOrigin OriginPredicate) (version int64, events []es.TimelineEvent, err error)

	// Append atomically appends events if the stream's current version
	// matches expectedVersion. On success it returns the stream's new
	// version. On a version mismatch it returns ErrVersionConflict and
	// persists nothing.
	Append(ctx context.Context, stream es.StreamName, expectedVersion ExpectedVersion, events []es.EventData) (newVersion int64, err error)

	// TokenEmpty returns the canonical token for a stream this adapter has
	// not yet read. Every adapter in this module returns store.EmptyToken,
	// which does not depend on the configured batch size and carries no
	// BatchCapacityLimit.
	TokenEmpty() Token

	// MaxBatchReads is the upper bound on pages read per load, or 0 for no
	// limit. Enforced by the adapter itself; exceeding it yields
	// ErrBatchLimitExceeded rather than a partial result.
	MaxBatchReads() int

	// BatchSize is the number of events this adapter reads or writes per
	// page. Access strategies that compact on a capacity threshold (e.g.
	// RollingSnapshots) use it to size that threshold.
	BatchSize() int
}
