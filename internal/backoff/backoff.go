// Package backoff implements the bounded exponential backoff adapters use
// when retrying a transient store.ErrStoreUnavailable condition, per spec
// §5/§7. No retry/backoff library is exercised by any retrieved repo's
// actual code — cenkalti/backoff appears only as an unused indirect
// dependency in one go.mod — so this stays a small stdlib helper rather
// than reaching for a library nothing in the corpus actually calls. See
// DESIGN.md.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded exponential backoff: delays double from Base
// up to Max, each jittered by +/-Jitter fraction of the computed delay.
type Policy struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
	// MaxAttempts caps how many delays Wait will honor before returning
	// false; 0 means unlimited.
	MaxAttempts int
}

// DefaultPolicy matches the teacher's retry conventions: a 50ms base delay
// doubling up to 5s, +/-50% jitter, capped at 5 attempts.
var DefaultPolicy = Policy{
	Base:        50 * time.Millisecond,
	Max:         5 * time.Second,
	Factor:      2,
	Jitter:      0.5,
	MaxAttempts: 5,
}

// delay returns the backoff delay for the given zero-based attempt number,
// before jitter.
func (p Policy) delay(attempt int) time.Duration {
	factor := p.Factor
	if factor <= 1 {
		factor = 2
	}
	d := float64(p.Base)
	for i := 0; i < attempt; i++ {
		d *= factor
		if d >= float64(p.Max) {
			return p.Max
		}
	}
	return time.Duration(d)
}

// jitter applies a uniform random jitter of +/- fraction*d to d.
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := float64(d) * fraction
	offset := (rand.Float64()*2 - 1) * spread
	return time.Duration(float64(d) + offset)
}

// Wait sleeps for the delay appropriate to attempt (0-based), or returns
// immediately with false if attempt has reached p.MaxAttempts. It returns
// ctx.Err() if ctx is canceled before the delay elapses.
func (p Policy) Wait(ctx context.Context, attempt int) (bool, error) {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return false, nil
	}
	d := jitter(p.delay(attempt), p.Jitter)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
