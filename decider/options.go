package decider

import (
	"time"

	"github.com/getpup/foldstore/category"
)

// LoadOption selects how a single Query/Transact call consults the cache
// and the backend, per spec §4.5. The default (no options) accepts any
// unexpired cache entry without revalidation and does not require a
// leader read.
type LoadOption func(*category.LoadOptions)

// AllowStale accepts a cache entry inserted within maxAge without
// revalidating it, and revalidates with an incremental forward read
// otherwise.
func AllowStale(maxAge time.Duration) LoadOption {
	return func(o *category.LoadOptions) { o.MaxAge = &maxAge }
}

// RequireLeader forces the backend to serve the underlying read (cold load
// or incremental revalidation) from a strongly consistent replica.
func RequireLeader() LoadOption {
	return func(o *category.LoadOptions) { o.RequireLeader = true }
}

func buildLoadOptions(opts []LoadOption) category.LoadOptions {
	var o category.LoadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
