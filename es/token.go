package es

// Position is the backend-agnostic bookkeeping a stream token carries
// between a load and the append that follows it.
type Position struct {
	// StreamVersion is the index of the last event this position has seen,
	// or -1 for an empty stream.
	StreamVersion int64

	// CompactionEventIndex is the index of the most recent origin/snapshot
	// event observed, if any.
	CompactionEventIndex *int64

	// BatchCapacityLimit is the number of additional events that may be
	// appended before another snapshot is warranted, per the access
	// strategy in effect. Tokens built by category.Category leave it nil;
	// RollingSnapshots derives the limit from StreamVersion and
	// CompactionEventIndex when it decides a write.
	BatchCapacityLimit *int32
}

// Version is the public version of the stream this position describes:
// StreamVersion+1, so an empty stream reports version 0.
func (p Position) Version() int64 {
	return p.StreamVersion + 1
}

// Empty reports whether this position describes a stream with no events.
func (p Position) Empty() bool {
	return p.StreamVersion < 0
}

// WithAppend returns the position that results from appending n events on
// top of this one, keeping the prior compaction index. Callers that emit a
// compaction event as part of the batch should set compactionIndex
// explicitly afterwards via WithCompaction.
func (p Position) WithAppend(n int64) Position {
	p.StreamVersion += n
	return p
}

// WithCompaction returns a copy of p recording that a compaction
// (snapshot) event was just observed or written at index idx.
func (p Position) WithCompaction(idx int64) Position {
	i := idx
	p.CompactionEventIndex = &i
	return p
}

// WithBatchCapacityLimit returns a copy of p carrying the given capacity
// hint for the next rolling-snapshot decision.
func (p Position) WithBatchCapacityLimit(limit int32) Position {
	l := limit
	p.BatchCapacityLimit = &l
	return p
}

// EmptyPosition is the canonical position of a stream that has never been
// written to.
var EmptyPosition = Position{StreamVersion: -1}
