package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
)

func tok(version int64) store.Token {
	return store.Token{Position: es.Position{StreamVersion: version - 1}}
}

func TestCache_GetMiss(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	if _, _, _, ok := c.Get("missing"); ok {
		t.Error("Get on an empty cache should miss")
	}
}

func TestCache_PutThenGet(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Put("a", tok(1), "state-1")

	gotTok, gotState, _, ok := c.Get("a")
	if !ok {
		t.Fatal("Get after Put should hit")
	}
	if gotTok.Version() != 1 || gotState != "state-1" {
		t.Errorf("Get() = (%v, %q), want (1, state-1)", gotTok.Version(), gotState)
	}
}

func TestCache_Put_StaleTokenDoesNotOverwrite(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Put("a", tok(5), "newer")
	c.Put("a", tok(2), "older")

	_, gotState, _, ok := c.Get("a")
	if !ok {
		t.Fatal("Get should hit")
	}
	if gotState != "newer" {
		t.Errorf("state = %q, want %q (a stale Put must not overwrite a fresher entry)", gotState, "newer")
	}
}

func TestCache_Put_NewerTokenOverwrites(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Put("a", tok(2), "older")
	c.Put("a", tok(5), "newer")

	_, gotState, _, ok := c.Get("a")
	if !ok {
		t.Fatal("Get should hit")
	}
	if gotState != "newer" {
		t.Errorf("state = %q, want %q", gotState, "newer")
	}
}

func TestCache_Put_EqualVersionOverwrites(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Put("a", tok(3), "first")
	c.Put("a", tok(3), "second")

	_, gotState, _, ok := c.Get("a")
	if !ok {
		t.Fatal("Get should hit")
	}
	if gotState != "second" {
		t.Errorf("state = %q, want %q (equal version is not stale)", gotState, "second")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Put("a", tok(1), "state-1")
	c.Invalidate("a")

	if _, _, _, ok := c.Get("a"); ok {
		t.Error("Get after Invalidate should miss")
	}
}

func TestCache_Invalidate_AbsentKeyIsNoOp(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	c.Invalidate("never-inserted")
}

func TestCache_Sliding_RefreshesOnGet(t *testing.T) {
	c := New[string](Sliding, 20*time.Millisecond)
	c.Put("a", tok(1), "state-1")

	time.Sleep(12 * time.Millisecond)
	if _, _, _, ok := c.Get("a"); !ok {
		t.Fatal("entry should still be live before its window elapses")
	}

	// Get refreshed the expiry, so the entry should survive another wait
	// that would have expired it under a Fixed policy.
	time.Sleep(12 * time.Millisecond)
	if _, _, _, ok := c.Get("a"); !ok {
		t.Error("Sliding policy should have refreshed expiry on the first Get")
	}
}

func TestCache_Fixed_ExpiresOnSchedule(t *testing.T) {
	c := New[string](Fixed, 15*time.Millisecond)
	c.Put("a", tok(1), "state-1")

	if _, _, _, ok := c.Get("a"); !ok {
		t.Fatal("entry should be live immediately after Put")
	}

	time.Sleep(25 * time.Millisecond)
	if _, _, _, ok := c.Get("a"); ok {
		t.Error("Fixed policy should not refresh expiry on Get")
	}
}

func TestCache_DefaultWindow(t *testing.T) {
	c := New[string](Sliding, 0)
	if c.window != DefaultWindow {
		t.Errorf("window = %v, want DefaultWindow", c.window)
	}
}

func TestCache_Fetch_MissInvokesFetchFunc(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	var calls int32
	gotTok, gotState, err := c.Fetch(context.Background(), "a", func() (store.Token, string, error) {
		atomic.AddInt32(&calls, 1)
		return tok(1), "fetched", nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotTok.Version() != 1 || gotState != "fetched" {
		t.Errorf("Fetch() = (%v, %q), want (1, fetched)", gotTok.Version(), gotState)
	}
	if calls != 1 {
		t.Errorf("fetch func called %d times, want 1", calls)
	}
}

func TestCache_Fetch_CoalescesConcurrentCallers(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	var calls int32
	release := make(chan struct{})

	const n = 8
	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, state, err := c.Fetch(context.Background(), "shared", func() (store.Token, string, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return tok(1), "fetched-once", nil
			})
			if err != nil {
				t.Errorf("Fetch: %v", err)
				return
			}
			results[i] = state
		}(i)
	}

	// Give every goroutine a chance to enter Fetch and join the in-flight
	// call before letting the single underlying fetch func return.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch func called %d times, want 1 (singleflight should coalesce concurrent callers)", calls)
	}
	for i, got := range results {
		if got != "fetched-once" {
			t.Errorf("results[%d] = %q, want %q", i, got, "fetched-once")
		}
	}
}

func TestCache_Fetch_PropagatesError(t *testing.T) {
	c := New[string](Sliding, time.Minute)
	wantErr := context.DeadlineExceeded
	_, _, err := c.Fetch(context.Background(), "a", func() (store.Token, string, error) {
		return store.Token{}, "", wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
