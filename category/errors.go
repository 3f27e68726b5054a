package category

import "errors"

var (
	// ErrMaxResyncsExhausted is surfaced by decider.Decider's transact loop
	// when a stream's conflict-retry budget (decider.DefaultMaxAttempts,
	// or the value given to decider.WithMaxAttempts) is
	// exhausted without a successful append.
	ErrMaxResyncsExhausted = errors.New("category: max resyncs exhausted")

	// ErrBatchLimitExceeded mirrors store.ErrBatchLimitExceeded at the
	// category boundary, wrapped with stream/operation context wherever a
	// backend returns it.
	ErrBatchLimitExceeded = errors.New("category: batch read limit exceeded")

	// ErrStoreUnavailable mirrors store.ErrStoreUnavailable at the category
	// boundary: an adapter's own retry policy has been exhausted for a
	// transient transport failure. Category never retries this itself; it
	// is a terminal condition from its point of view.
	ErrStoreUnavailable = errors.New("category: store unavailable")
)
