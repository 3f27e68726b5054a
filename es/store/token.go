// Package store defines the contract a storage backend must satisfy to back
// a category.Category, and the opaque token type every such backend
// produces.
package store

import "github.com/getpup/foldstore/es"

// Token is the opaque handle carried from a load through a decide/append
// cycle and back into cache/reload. Both reference backends in this module
// (relational append-only, document tip/calf) share the same Position
// shape, so a single concrete Token serves them both; application and
// decider code should treat it as opaque and compare tokens only through
// Version/IsStale, never by reaching into Position directly.
type Token struct {
	// Position is the backend bookkeeping this token carries.
	Position es.Position

	// StreamBytes is the cumulative size, in bytes, of the events folded
	// to produce the state this token is paired with. Advisory; used by
	// observers, not by any correctness check.
	StreamBytes int64
}

// Version returns the public stream version this token describes.
func (t Token) Version() int64 {
	return t.Position.Version()
}

// EmptyToken is the canonical token for a stream that has never been
// written to.
var EmptyToken = Token{Position: es.EmptyPosition}

// IsStale implements the default staleness predicate from the spec:
// candidate is stale with respect to current when current is strictly
// newer (a higher Version). A staler token must never overwrite a fresher
// one in the cache.
func IsStale(current, candidate Token) bool {
	return current.Version() > candidate.Version()
}
