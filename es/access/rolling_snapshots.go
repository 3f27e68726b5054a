package access

import "github.com/getpup/foldstore/es/store"

type rollingSnapshots[S, E any] struct {
	isOrigin   func(E) bool
	toSnapshot func(S) E
}

// RollingSnapshots reads backward until isOrigin matches, like Snapshot,
// but only appends a compaction event when the batch about to be written
// would push the stream past its batchCapacityLimit — keeping the backward
// scan bounded to roughly one batch without paying for a snapshot on every
// write.
func RollingSnapshots[S, E any](isOrigin func(E) bool, toSnapshot func(S) E) Strategy[S, E] {
	return rollingSnapshots[S, E]{isOrigin: isOrigin, toSnapshot: toSnapshot}
}

func (r rollingSnapshots[S, E]) Load() LoadPlan[E] {
	return LoadPlan[E]{Backward: true, IsOrigin: r.isOrigin}
}

func (r rollingSnapshots[S, E]) PrepareWrite(tok store.Token, decided []E, newState S, batchSize int) WriteDecision[E] {
	limit := capacityLimit(batchSize, len(decided), tok.Position)
	if len(decided) <= int(limit) {
		return WriteDecision[E]{Events: decided}
	}
	events := make([]E, len(decided)+1)
	copy(events, decided)
	events[len(decided)] = r.toSnapshot(newState)
	return WriteDecision[E]{Events: events, RecordsOrigin: true}
}

func (rollingSnapshots[S, E]) Cacheable() bool {
	return true
}
