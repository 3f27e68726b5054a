package access

import "github.com/getpup/foldstore/es/store"

type latestKnownEvent[S, E any] struct{}

// LatestKnownEvent reads backward and stops at the single most recent
// event, regardless of its type — the stream's state is
// fold(initial, [lastEvent]). It is rejected at category construction when
// combined with a cache: a cached read-one result would defeat the whole
// point of re-reading only the tail on every load.
func LatestKnownEvent[S, E any]() Strategy[S, E] {
	return latestKnownEvent[S, E]{}
}

func (latestKnownEvent[S, E]) Load() LoadPlan[E] {
	return LoadPlan[E]{Backward: true, IsOrigin: nil}
}

func (latestKnownEvent[S, E]) PrepareWrite(_ store.Token, decided []E, _ S, _ int) WriteDecision[E] {
	return WriteDecision[E]{Events: decided}
}

func (latestKnownEvent[S, E]) Cacheable() bool {
	return false
}
