// Package access implements the five access-strategy policy objects from
// the spec: Unoptimized, LatestKnownEvent, Snapshot, RollingState, and
// RollingSnapshots. A Strategy is consulted by category.Category both when
// loading a stream (how much of it to read) and when transacting a
// decision (what to actually append, and whether a compaction/snapshot
// event rides along).
package access

import (
	"errors"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
)

// ErrMisconfigured is raised at category construction time when a Strategy
// and a cache are combined in a way the strategy forbids. The only current
// case is LatestKnownEvent, whose read-one semantics a cache hit would
// silently defeat.
var ErrMisconfigured = errors.New("access: strategy is not compatible with a cache")

// LoadPlan describes how a Strategy wants a stream read before folding.
type LoadPlan[E any] struct {
	// Backward selects LoadBackwardUntil over LoadForward.
	Backward bool

	// IsOrigin is consulted against each decoded event while reading
	// backward. Nil means "the first (most recent) event is the origin,
	// regardless of its content" — the LatestKnownEvent behavior. Ignored
	// when Backward is false.
	IsOrigin func(E) bool
}

// WriteDecision describes what a Strategy wants actually appended, given
// the application events userDecide produced and the state that results
// from folding them in.
type WriteDecision[E any] struct {
	// Events is what category.Category hands to the adapter, in order.
	Events []E

	// RecordsOrigin reports whether the last event in Events is itself an
	// origin, so the token built after a successful append should advance
	// its CompactionEventIndex to cover it.
	RecordsOrigin bool
}

// Strategy is the access-strategy policy object described in spec §4.2.
type Strategy[S, E any] interface {
	// Load describes how category.Category should read the stream.
	Load() LoadPlan[E]

	// PrepareWrite decides what to actually append. batchSize is the
	// adapter's configured page size, needed by RollingSnapshots to
	// compute its capacity check.
	PrepareWrite(tok store.Token, decided []E, newState S, batchSize int) WriteDecision[E]

	// Cacheable reports whether this strategy may be combined with a
	// cache.Cache. Only LatestKnownEvent forbids it.
	Cacheable() bool
}

// capacityLimit implements the batchCapacityLimit derivation from §4.2:
// how many more events may land in this stream before another compaction
// event is warranted, given unstoredPending events about to be appended.
func capacityLimit(batchSize, unstoredPending int, pos es.Position) int32 {
	var limit int64
	if pos.CompactionEventIndex != nil {
		limit = int64(batchSize) - int64(unstoredPending) - (pos.StreamVersion - *pos.CompactionEventIndex + 1)
	} else {
		limit = int64(batchSize) - int64(unstoredPending) - (pos.StreamVersion + 1) - 1
	}
	if limit < 0 {
		limit = 0
	}
	return int32(limit)
}

// CapacityLimit is the exported form of capacityLimit. category.Category
// does not call it: tokens it builds leave Position.BatchCapacityLimit nil,
// and RollingSnapshots recomputes the limit on each PrepareWrite.
func CapacityLimit(batchSize, unstoredPending int, pos es.Position) int32 {
	return capacityLimit(batchSize, unstoredPending, pos)
}
