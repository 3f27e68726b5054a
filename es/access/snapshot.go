package access

import "github.com/getpup/foldstore/es/store"

type snapshotStrategy[S, E any] struct {
	isOrigin   func(E) bool
	toSnapshot func(S) E
}

// Snapshot reads backward until isOrigin matches a decoded event, and on
// every append also appends one snapshot event produced by
// toSnapshot(newState) as the final event of the batch.
func Snapshot[S, E any](isOrigin func(E) bool, toSnapshot func(S) E) Strategy[S, E] {
	return snapshotStrategy[S, E]{isOrigin: isOrigin, toSnapshot: toSnapshot}
}

func (s snapshotStrategy[S, E]) Load() LoadPlan[E] {
	return LoadPlan[E]{Backward: true, IsOrigin: s.isOrigin}
}

func (s snapshotStrategy[S, E]) PrepareWrite(_ store.Token, decided []E, newState S, _ int) WriteDecision[E] {
	events := make([]E, len(decided)+1)
	copy(events, decided)
	events[len(decided)] = s.toSnapshot(newState)
	return WriteDecision[E]{Events: events, RecordsOrigin: true}
}

func (snapshotStrategy[S, E]) Cacheable() bool {
	return true
}
