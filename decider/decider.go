// Package decider is the public façade described in spec §4.5: a thin
// wrapper over category.Category exposing query, transact, and
// transactResult against one resolved stream, plus the conflict-retry loop
// from §4.3 that category.Category itself does not run.
package decider

import (
	"context"
	"errors"
	"fmt"

	"github.com/getpup/foldstore/category"
	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
)

// DefaultMaxAttempts bounds the number of TrySync attempts (the first try
// plus each reload-and-redecide retry) a Decider makes before surfacing
// category.ErrMaxResyncsExhausted.
const DefaultMaxAttempts = 3

// Decider binds a Category to one concrete stream. Application code
// typically constructs one per (category-kind, stream-id) request rather
// than holding it long-term; the Category and its Cache are the
// long-lived, shared objects.
type Decider[S, E any] struct {
	cat         *category.Category[S, E]
	stream      es.StreamName
	maxAttempts int
	observer    es.Observer
}

// Option configures a Decider at construction.
type Option[S, E any] func(*Decider[S, E])

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts[S, E any](n int) Option[S, E] {
	return func(d *Decider[S, E]) { d.maxAttempts = n }
}

// WithObserver attaches an es.Observer for per-attempt logging.
func WithObserver[S, E any](obs es.Observer) Option[S, E] {
	return func(d *Decider[S, E]) { d.observer = obs }
}

// New binds cat to stream.
func New[S, E any](cat *category.Category[S, E], stream es.StreamName, opts ...Option[S, E]) *Decider[S, E] {
	d := &Decider[S, E]{
		cat:         cat,
		stream:      stream,
		maxAttempts: DefaultMaxAttempts,
		observer:    es.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.observer == nil {
		d.observer = es.NoOpObserver{}
	}
	return d
}

// Query loads the stream's current state and returns project(state). It is
// a free function, not a method, because it needs a type parameter (R)
// a method cannot introduce on its own.
func Query[S, E, R any](ctx context.Context, d *Decider[S, E], project func(S) R, opts ...LoadOption) (R, error) {
	var zero R
	_, state, err := d.cat.Load(ctx, d.stream, buildLoadOptions(opts))
	if err != nil {
		return zero, err
	}
	return project(state), nil
}

// Transact runs decide against the stream's current state, repeatedly on
// conflict, appending whatever events decide returns (an empty slice means
// "no-op, do not append") and discarding the resulting state.
func (d *Decider[S, E]) Transact(ctx context.Context, decide func(S) []E, opts ...LoadOption) error {
	_, err := transact[S, E, struct{}](ctx, d, opts, func(s S) (struct{}, []E) {
		return struct{}{}, decide(s)
	})
	return err
}

// TransactResult is Transact's generalization: decide additionally
// computes a caller-chosen result value (e.g. an id assigned during this
// decision) that is returned once the transaction lands.
func TransactResult[S, E, R any](ctx context.Context, d *Decider[S, E], decide func(S) (R, []E), opts ...LoadOption) (R, error) {
	return transact[S, E, R](ctx, d, opts, decide)
}

// transact implements the decide loop from spec §4.3.
func transact[S, E, R any](ctx context.Context, d *Decider[S, E], opts []LoadOption, decide func(S) (R, []E)) (R, error) {
	var zero R

	loadOpts := buildLoadOptions(opts)
	tok, state, err := d.cat.Load(ctx, d.stream, loadOpts)
	if err != nil {
		return zero, err
	}

	attempts := 0
	for {
		result, newEvents := decide(state)
		if len(newEvents) == 0 {
			return result, nil
		}

		_, reload, err := d.cat.TrySync(ctx, ctx, d.stream, tok, state, newEvents)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return zero, err
		}

		attempts++
		if attempts >= d.maxAttempts {
			return zero, fmt.Errorf("decider: stream %s: %w", d.stream, category.ErrMaxResyncsExhausted)
		}

		d.observer.Info(ctx, "decider: conflict, reloading and redeciding", "stream", d.stream.String(), "attempt", attempts)
		tok, state, err = reload(ctx)
		if err != nil {
			return zero, err
		}
	}
}
