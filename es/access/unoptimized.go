package access

import "github.com/getpup/foldstore/es/store"

type unoptimized[S, E any] struct{}

// Unoptimized reads the whole stream forward from index 0 and appends
// decided events as-is. It is the default strategy; use it until a
// stream's history is long enough that a backward scan or compaction pays
// for itself.
func Unoptimized[S, E any]() Strategy[S, E] {
	return unoptimized[S, E]{}
}

func (unoptimized[S, E]) Load() LoadPlan[E] {
	return LoadPlan[E]{Backward: false}
}

func (unoptimized[S, E]) PrepareWrite(_ store.Token, decided []E, _ S, _ int) WriteDecision[E] {
	return WriteDecision[E]{Events: decided}
}

func (unoptimized[S, E]) Cacheable() bool {
	return true
}
