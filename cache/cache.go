// Package cache implements the per-stream memo described in spec §4.4: a
// process-wide mapping from stream name to (token, state), gated by the
// backend's staleness predicate, evicted on a sliding- or fixed-window
// policy, and coalescing concurrent loads of an absent key through
// golang.org/x/sync/singleflight. See DESIGN.md for this package's
// grounding.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/getpup/foldstore/es/store"
)

// Policy selects how cache entries expire.
type Policy int

const (
	// Sliding refreshes an entry's expiry to now+window on every access.
	// It is the default.
	Sliding Policy = iota

	// Fixed sets an entry's expiry to insertedAt+window once, on first
	// insert, and never refreshes it.
	Fixed
)

// DefaultWindow is the sliding/fixed expiry window used when a Cache is
// constructed without an explicit one.
const DefaultWindow = 20 * time.Minute

type entry[S any] struct {
	mu         sync.Mutex
	token      store.Token
	state      S
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a process-wide memo of (token, state) pairs keyed by stream
// name, generic over the application state type S. A nil *Cache[S] is not
// usable; category.Category treats "no cache configured" as a separate
// case rather than as a zero-value Cache.
type Cache[S any] struct {
	policy Policy
	window time.Duration

	mu      sync.RWMutex
	entries map[string]*entry[S]

	sf singleflight.Group

	sweepOnce sync.Once
	stop      chan struct{}
}

// New constructs a Cache with the given eviction policy and window. A
// window of 0 uses DefaultWindow.
func New[S any](policy Policy, window time.Duration) *Cache[S] {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Cache[S]{
		policy:  policy,
		window:  window,
		entries: make(map[string]*entry[S]),
		stop:    make(chan struct{}),
	}
	return c
}

// StartSweep launches a background goroutine that evicts expired entries
// every interval until Stop is called. Lookup already evicts lazily, so
// StartSweep is an optimization for caches with low read traffic, not a
// correctness requirement.
func (c *Cache[S]) StartSweep(interval time.Duration) {
	c.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-c.stop:
					return
				case <-ticker.C:
					c.sweep()
				}
			}
		}()
	})
}

// Stop ends the background sweep goroutine, if one was started.
func (c *Cache[S]) Stop() {
	close(c.stop)
}

func (c *Cache[S]) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.mu.Lock()
		expired := now.After(e.expiresAt)
		e.mu.Unlock()
		if expired {
			delete(c.entries, key)
		}
	}
}

// Get returns the cached (token, state) pair for key along with the time
// it was inserted, evicting it first if its window has elapsed. ok is
// false on a miss or an eviction.
func (c *Cache[S]) Get(key string) (tok store.Token, state S, insertedAt time.Time, ok bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()
	if !found {
		return store.Token{}, state, time.Time{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if now.After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return store.Token{}, state, time.Time{}, false
	}
	if c.policy == Sliding {
		e.expiresAt = now.Add(c.window)
	}
	return e.token, e.state, e.insertedAt, true
}

// Put inserts or replaces the entry for key, but only when tok is not
// stale with respect to any entry already present — the cache staleness
// gate from spec §3/§4.4. It refreshes (Sliding) or sets (Fixed, on first
// insert) the entry's expiry.
func (c *Cache[S]) Put(key string, tok store.Token, state S) {
	now := time.Now()

	c.mu.Lock()
	e, found := c.entries[key]
	if !found {
		c.entries[key] = &entry[S]{
			token:      tok,
			state:      state,
			insertedAt: now,
			expiresAt:  now.Add(c.window),
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if store.IsStale(e.token, tok) {
		return
	}
	e.token = tok
	e.state = state
	e.insertedAt = now
	if c.policy == Sliding {
		e.expiresAt = now.Add(c.window)
	}
}

// Invalidate removes any cached entry for key unconditionally.
func (c *Cache[S]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Fetch coordinates a single-flight load for key: if another goroutine is
// already fetching this key, the caller awaits that result instead of
// issuing its own. fetch is expected to both compute and Put the result;
// Fetch itself never calls Put.
func (c *Cache[S]) Fetch(_ context.Context, key string, fetch func() (store.Token, S, error)) (store.Token, S, error) {
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		tok, state, ferr := fetch()
		if ferr != nil {
			return nil, ferr
		}
		return fetchResult[S]{tok, state}, nil
	})
	if err != nil {
		var zero S
		return store.Token{}, zero, err
	}
	res := v.(fetchResult[S])
	return res.token, res.state, nil
}

type fetchResult[S any] struct {
	token store.Token
	state S
}
