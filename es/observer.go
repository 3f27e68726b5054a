package es

import "context"

// Observer is the optional hook the core reports through: logging, tracing
// spans, and metric emission are all modeled as implementations of this one
// narrow interface rather than a global sink. It is designed to be
// zero-overhead when absent — category.Category and decider.Decider accept
// a nil Observer and fall back to NoOpObserver.
type Observer interface {
	// Debug reports low-level operational detail (e.g. a cache miss, a
	// batch read boundary).
	Debug(ctx context.Context, msg string, keyvals ...interface{})

	// Info reports a significant, expected event (e.g. a successful
	// transact, a conflict retry).
	Info(ctx context.Context, msg string, keyvals ...interface{})

	// Error reports a failure that propagated to the caller.
	Error(ctx context.Context, msg string, keyvals ...interface{})
}

// NoOpObserver discards everything. It is the default when no Observer is
// configured.
type NoOpObserver struct{}

// Debug implements Observer.
func (NoOpObserver) Debug(_ context.Context, _ string, _ ...interface{}) {}

// Info implements Observer.
func (NoOpObserver) Info(_ context.Context, _ string, _ ...interface{}) {}

// Error implements Observer.
func (NoOpObserver) Error(_ context.Context, _ string, _ ...interface{}) {}
