// Package category turns store.Adapter primitives plus a stream's
// fold/initial/codec/access.Strategy into the two operations spec §4.3
// describes: Load (reconstitute current state) and TrySync (transact one
// batch of decided events under optimistic concurrency). decider.Decider is
// the public façade built on top of this package's conflict-free Load and
// the conflict-aware TrySync/Reload pair; the retry loop itself lives in
// decider, not here.
package category

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getpup/foldstore/cache"
	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/access"
	"github.com/getpup/foldstore/es/store"
)

// Config assembles the pure elements an application supplies — Fold,
// Initial, a Codec, an access.Strategy — with the store.Adapter and
// optional cache.Cache that make a Category concrete.
type Config[S, E any] struct {
	Adapter  store.Adapter
	Codec    es.Codec[E]
	Fold     func(S, E) S
	Initial  S
	Strategy access.Strategy[S, E]
	Cache    *cache.Cache[S]
	Observer es.Observer
}

// Category is the engine described in spec §4.3. It holds no per-call
// state; all of it lives in the Token/state pair callers carry between
// calls and in the optional Cache.
type Category[S, E any] struct {
	adapter  store.Adapter
	codec    es.Codec[E]
	fold     func(S, E) S
	initial  S
	strategy access.Strategy[S, E]
	cache    *cache.Cache[S]
	observer es.Observer
}

// New validates cfg and constructs a Category. It returns
// access.ErrMisconfigured when cfg.Cache is non-nil and cfg.Strategy is not
// cacheable (currently: LatestKnownEvent).
func New[S, E any](cfg Config[S, E]) (*Category[S, E], error) {
	if cfg.Cache != nil && !cfg.Strategy.Cacheable() {
		return nil, access.ErrMisconfigured
	}
	obs := cfg.Observer
	if obs == nil {
		obs = es.NoOpObserver{}
	}
	return &Category[S, E]{
		adapter:  cfg.Adapter,
		codec:    cfg.Codec,
		fold:     cfg.Fold,
		initial:  cfg.Initial,
		strategy: cfg.Strategy,
		cache:    cfg.Cache,
		observer: obs,
	}, nil
}

// wrapStoreErr translates the two store-level sentinels a backend can
// surface from a load or append into their category-level equivalents,
// still wrapping the underlying error so errors.Is keeps working against
// either one. Any other error is wrapped plain, unchanged.
func wrapStoreErr(op string, stream es.StreamName, err error) error {
	switch {
	case errors.Is(err, store.ErrBatchLimitExceeded):
		return fmt.Errorf("category: %s stream %s: %w: %w", op, stream, ErrBatchLimitExceeded, err)
	case errors.Is(err, store.ErrStoreUnavailable):
		return fmt.Errorf("category: %s stream %s: %w: %w", op, stream, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("category: %s stream %s: %w", op, stream, err)
	}
}

// LoadOptions controls how Load consults the cache and the backend.
type LoadOptions struct {
	// RequireLeader asks the backend to serve a cold or incremental read
	// from a strongly consistent replica.
	RequireLeader bool

	// MaxAge, when non-nil, is a freshness hint: a cache entry inserted
	// within MaxAge is returned as-is; an older one is revalidated with an
	// incremental forward read rather than treated as a miss. A nil
	// MaxAge (the default) accepts any unexpired cache entry without
	// revalidation.
	MaxAge *time.Duration
}

// Load reconstitutes (or reuses) the current (Token, State) pair for
// stream, per spec §4.3.
func (c *Category[S, E]) Load(ctx context.Context, stream es.StreamName, opts LoadOptions) (store.Token, S, error) {
	key := stream.String()

	if c.cache != nil {
		if tok, state, insertedAt, ok := c.cache.Get(key); ok {
			if opts.MaxAge == nil || time.Since(insertedAt) <= *opts.MaxAge {
				c.observer.Debug(ctx, "category: cache hit", "stream", key)
				return tok, state, nil
			}
			c.observer.Debug(ctx, "category: revalidating aged cache entry", "stream", key)
			newTok, newState, err := c.incrementalReload(ctx, stream, tok, state, true)
			if err != nil {
				return store.Token{}, state, err
			}
			if c.cache != nil {
				c.cache.Put(key, newTok, newState)
			}
			return newTok, newState, nil
		}

		c.observer.Debug(ctx, "category: cache miss", "stream", key)
		return c.cache.Fetch(ctx, key, func() (store.Token, S, error) {
			tok, state, err := c.loadFresh(ctx, stream, opts.RequireLeader)
			if err != nil {
				return store.Token{}, state, err
			}
			if c.strategy.Cacheable() {
				c.cache.Put(key, tok, state)
			}
			return tok, state, nil
		})
	}

	return c.loadFresh(ctx, stream, opts.RequireLeader)
}

// loadFresh performs the strategy-directed cold load: a full forward scan
// for Unoptimized, or a backward scan stopping at the strategy's origin
// predicate for the snapshotting strategies.
func (c *Category[S, E]) loadFresh(ctx context.Context, stream es.StreamName, requireLeader bool) (store.Token, S, error) {
	plan := c.strategy.Load()

	var (
		version int64
		events  []es.TimelineEvent
		err     error
	)
	if plan.Backward {
		origin := func(evt es.TimelineEvent) (bool, error) {
			if plan.IsOrigin == nil {
				// LatestKnownEvent: the most recently scanned event is the
				// origin, regardless of type or decodability.
				return true, nil
			}
			e, ok, derr := c.codec.TryDecode(evt)
			if derr != nil {
				return false, derr
			}
			if !ok {
				return false, nil
			}
			return plan.IsOrigin(e), nil
		}
		version, events, err = c.adapter.LoadBackwardUntil(ctx, stream, requireLeader, origin)
	} else {
		version, events, err = c.adapter.LoadForward(ctx, stream, 0, requireLeader)
	}
	if err != nil {
		return store.Token{}, c.initial, wrapStoreErr("load", stream, err)
	}

	state := c.initial
	var streamBytes int64
	for _, evt := range events {
		streamBytes += int64(evt.Size)
		e, ok, derr := c.codec.TryDecode(evt)
		if derr != nil {
			return store.Token{}, c.initial, fmt.Errorf("category: decode stream %s: %w", stream, derr)
		}
		if !ok {
			c.observer.Debug(ctx, "category: skipping undecodable event", "stream", stream.String(), "event_type", evt.EventType, "index", evt.Index)
			continue
		}
		state = c.fold(state, e)
	}

	var compactionIdx *int64
	if plan.Backward && len(events) > 0 {
		idx := events[0].Index
		compactionIdx = &idx
	}

	tok := store.Token{
		Position:    es.Position{StreamVersion: version, CompactionEventIndex: compactionIdx},
		StreamBytes: streamBytes,
	}
	return tok, state, nil
}

// incrementalReload folds events from fromToken.Position.StreamVersion+1
// onward into state, leaving the compaction index untouched — used both by
// Load's max-age revalidation and by TrySync's conflict recovery.
func (c *Category[S, E]) incrementalReload(ctx context.Context, stream es.StreamName, fromToken store.Token, state S, requireLeader bool) (store.Token, S, error) {
	version, events, err := c.adapter.LoadForward(ctx, stream, fromToken.Position.StreamVersion+1, requireLeader)
	if err != nil {
		return store.Token{}, state, wrapStoreErr("reload", stream, err)
	}

	newState := state
	streamBytes := fromToken.StreamBytes
	for _, evt := range events {
		streamBytes += int64(evt.Size)
		e, ok, derr := c.codec.TryDecode(evt)
		if derr != nil {
			return store.Token{}, state, fmt.Errorf("category: decode stream %s: %w", stream, derr)
		}
		if !ok {
			c.observer.Debug(ctx, "category: skipping undecodable event", "stream", stream.String(), "event_type", evt.EventType, "index", evt.Index)
			continue
		}
		newState = c.fold(newState, e)
	}

	pos := fromToken.Position
	pos.StreamVersion = version
	return store.Token{Position: pos, StreamBytes: streamBytes}, newState, nil
}

// SyncResult is what TrySync returns on a successful append.
type SyncResult[S any] struct {
	Token store.Token
	State S
}

// Reload performs the incremental-forward-read recovery described in spec
// §4.3 step 5, folding any events a concurrent writer appended into the
// old state and returning the refreshed pair.
type Reload[S any] func(ctx context.Context) (store.Token, S, error)

// TrySync attempts to append newEvents (the result of a decide step run
// against state as of tok) and, when the strategy warrants it, a
// compaction event. encodeCtx is threaded into the codec so applications
// can carry correlation/causation ids through Encode.
//
// On success it returns a populated SyncResult and a nil Reload. On a
// version conflict it returns a zero SyncResult, a non-nil Reload, and
// store.ErrVersionConflict — callers (decider's transact loop) are
// expected to check errors.Is(err, store.ErrVersionConflict) and invoke
// Reload to get back into the loop. Any other error is terminal.
func (c *Category[S, E]) TrySync(ctx context.Context, encodeCtx context.Context, stream es.StreamName, tok store.Token, state S, newEvents []E) (SyncResult[S], Reload[S], error) {
	newState := state
	for _, e := range newEvents {
		newState = c.fold(newState, e)
	}

	decision := c.strategy.PrepareWrite(tok, newEvents, newState, c.adapter.BatchSize())

	encoded := make([]es.EventData, len(decision.Events))
	for i, e := range decision.Events {
		ed, err := c.codec.Encode(encodeCtx, e)
		if err != nil {
			return SyncResult[S]{}, nil, fmt.Errorf("category: encode stream %s: %w", stream, err)
		}
		encoded[i] = ed
	}

	newVersion, err := c.adapter.Append(ctx, stream, store.FromToken(tok), encoded)
	if errors.Is(err, store.ErrVersionConflict) {
		c.observer.Info(ctx, "category: version conflict, will reload", "stream", stream.String())
		reload := func(rctx context.Context) (store.Token, S, error) {
			return c.incrementalReload(rctx, stream, tok, state, true)
		}
		return SyncResult[S]{}, reload, store.ErrVersionConflict
	}
	if err != nil {
		return SyncResult[S]{}, nil, wrapStoreErr("append", stream, err)
	}

	pos := tok.Position
	pos.StreamVersion = newVersion
	if decision.RecordsOrigin {
		pos = pos.WithCompaction(newVersion)
	}

	var appendedBytes int64
	for _, ed := range encoded {
		appendedBytes += int64(len(ed.Data) + len(ed.Metadata))
	}

	newTok := store.Token{Position: pos, StreamBytes: tok.StreamBytes + appendedBytes}
	if c.cache != nil {
		c.cache.Put(stream.String(), newTok, newState)
	}

	c.observer.Info(ctx, "category: transact succeeded", "stream", stream.String(), "new_version", newTok.Version(), "events_appended", len(decision.Events))
	return SyncResult[S]{Token: newTok, State: newState}, nil, nil
}
