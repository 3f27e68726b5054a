package access

import "github.com/getpup/foldstore/es/store"

type rollingState[S, E any] struct {
	toSnapshot func(S) E
}

// RollingState behaves like Snapshot for loading — every decoded event is
// treated as an origin, since this strategy never writes anything but
// snapshots — but on write it replaces the decided events entirely with a
// single snapshot of the new state. The stream thus only ever holds the
// latest snapshot as far as reads are concerned.
func RollingState[S, E any](toSnapshot func(S) E) Strategy[S, E] {
	return rollingState[S, E]{toSnapshot: toSnapshot}
}

func (rollingState[S, E]) Load() LoadPlan[E] {
	return LoadPlan[E]{Backward: true, IsOrigin: func(E) bool { return true }}
}

func (r rollingState[S, E]) PrepareWrite(_ store.Token, _ []E, newState S, _ int) WriteDecision[E] {
	return WriteDecision[E]{Events: []E{r.toSnapshot(newState)}, RecordsOrigin: true}
}

func (rollingState[S, E]) Cacheable() bool {
	return true
}
