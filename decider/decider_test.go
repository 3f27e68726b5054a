package decider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/getpup/foldstore/category"
	"github.com/getpup/foldstore/decider"
	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/access"
	"github.com/getpup/foldstore/es/store"
	"github.com/getpup/foldstore/internal/memstore"
)

type added struct{ Name string }

type favoritesState []string

func fold(s favoritesState, e added) favoritesState {
	return append(favoritesState{e.Name}, s...)
}

type codec struct{}

func (codec) Encode(_ context.Context, e added) (es.EventData, error) {
	return es.EventData{EventID: uuid.New(), EventType: "Added", Data: []byte(e.Name)}, nil
}

func (codec) TryDecode(evt es.TimelineEvent) (added, bool, error) {
	if evt.EventType != "Added" {
		return added{}, false, nil
	}
	return added{Name: string(evt.Data)}, true, nil
}

func newDecider(t *testing.T, adapter store.Adapter) (*decider.Decider[favoritesState, added], es.StreamName) {
	t.Helper()
	cat, err := category.New(category.Config[favoritesState, added]{
		Adapter:  adapter,
		Codec:    codec{},
		Fold:     fold,
		Initial:  favoritesState{},
		Strategy: access.Unoptimized[favoritesState, added](),
	})
	if err != nil {
		t.Fatalf("category.New: %v", err)
	}
	stream, _ := es.NewStreamName("Favorites", "ClientJ")
	return decider.New(cat, stream), stream
}

func contains(s favoritesState, name string) bool {
	for _, v := range s {
		if v == name {
			return true
		}
	}
	return false
}

// TestDecider_S1FavoritesList exercises the scenario described in spec §8/S1:
// add "a", add "b", list.
func TestDecider_S1FavoritesList(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New(500, 0)
	d, _ := newDecider(t, adapter)

	add := func(name string) func(favoritesState) []added {
		return func(s favoritesState) []added {
			if contains(s, name) {
				return nil
			}
			return []added{{Name: name}}
		}
	}

	if err := d.Transact(ctx, add("a")); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := d.Transact(ctx, add("b")); err != nil {
		t.Fatalf("add b: %v", err)
	}

	list, err := decider.Query(ctx, d, func(s favoritesState) favoritesState { return s })
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := favoritesState{"b", "a"}
	if len(list) != len(want) || list[0] != want[0] || list[1] != want[1] {
		t.Errorf("list = %v, want %v", list, want)
	}
}

// TestDecider_S2IdempotentAdd exercises spec §8/S2: re-adding an existing
// favorite decides no events and leaves state unchanged.
func TestDecider_S2IdempotentAdd(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New(500, 0)
	d, stream := newDecider(t, adapter)

	add := func(name string) func(favoritesState) []added {
		return func(s favoritesState) []added {
			if contains(s, name) {
				return nil
			}
			return []added{{Name: name}}
		}
	}

	if err := d.Transact(ctx, add("a")); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := d.Transact(ctx, add("a")); err != nil {
		t.Fatalf("idempotent add a: %v", err)
	}

	if got := adapter.EventCount(stream); got != 1 {
		t.Errorf("event count = %d, want 1 (idempotent add must not append)", got)
	}
}

// TestDecider_MaxResyncsExhausted forces every TrySync attempt to conflict
// by racing a direct adapter append ahead of each decide call.
func TestDecider_MaxResyncsExhausted(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New(500, 0)
	d, stream := newDecider(t, adapter)

	attempts := 0
	decide := func(s favoritesState) []added {
		// Every time we're asked to decide, a concurrent writer has just
		// landed an event ahead of us, so our subsequent TrySync will
		// always conflict.
		attempts++
		if _, err := adapter.Append(ctx, stream, store.Any(), []es.EventData{{
			EventID: uuid.New(), EventType: "Added", Data: []byte("x"),
		}}); err != nil {
			t.Fatalf("racing append: %v", err)
		}
		return []added{{Name: "mine"}}
	}

	err := d.Transact(ctx, decide)
	if !errors.Is(err, category.ErrMaxResyncsExhausted) {
		t.Fatalf("err = %v, want ErrMaxResyncsExhausted", err)
	}
}
