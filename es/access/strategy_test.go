package access

import (
	"testing"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
)

type testEvent struct {
	Kind string
}

func isSnap(e testEvent) bool { return e.Kind == "Snapshot" }
func toSnap(state string) testEvent { return testEvent{Kind: "Snapshot"} }

func TestUnoptimized_Load(t *testing.T) {
	plan := Unoptimized[string, testEvent]().Load()
	if plan.Backward {
		t.Error("Unoptimized must read forward")
	}
}

func TestUnoptimized_PrepareWrite(t *testing.T) {
	decided := []testEvent{{Kind: "a"}, {Kind: "b"}}
	wd := Unoptimized[string, testEvent]().PrepareWrite(store.EmptyToken, decided, "state", 500)
	if len(wd.Events) != 2 || wd.RecordsOrigin {
		t.Errorf("unexpected write decision: %+v", wd)
	}
}

func TestLatestKnownEvent_NotCacheable(t *testing.T) {
	if LatestKnownEvent[string, testEvent]().Cacheable() {
		t.Error("LatestKnownEvent must not be cacheable")
	}
}

func TestLatestKnownEvent_Load(t *testing.T) {
	plan := LatestKnownEvent[string, testEvent]().Load()
	if !plan.Backward || plan.IsOrigin != nil {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestSnapshot_PrepareWrite_AppendsSnapshot(t *testing.T) {
	s := Snapshot[string, testEvent](isSnap, toSnap)
	decided := []testEvent{{Kind: "a"}}
	wd := s.PrepareWrite(store.EmptyToken, decided, "state", 500)
	if len(wd.Events) != 2 {
		t.Fatalf("want 2 events, got %d", len(wd.Events))
	}
	if !isSnap(wd.Events[1]) || !wd.RecordsOrigin {
		t.Errorf("last event should be the snapshot and RecordsOrigin true, got %+v", wd)
	}
}

func TestRollingState_PrepareWrite_ReplacesDecided(t *testing.T) {
	rs := RollingState[string, testEvent](toSnap)
	decided := []testEvent{{Kind: "a"}, {Kind: "b"}, {Kind: "c"}}
	wd := rs.PrepareWrite(store.EmptyToken, decided, "state", 500)
	if len(wd.Events) != 1 || !isSnap(wd.Events[0]) || !wd.RecordsOrigin {
		t.Errorf("RollingState should replace decided events with one snapshot, got %+v", wd)
	}
}

func TestRollingState_LoadOriginAlwaysTrue(t *testing.T) {
	plan := RollingState[string, testEvent](toSnap).Load()
	if !plan.Backward || plan.IsOrigin == nil || !plan.IsOrigin(testEvent{Kind: "anything"}) {
		t.Errorf("RollingState must treat every event as origin")
	}
}

func TestRollingSnapshots_NoSnapshotWithinCapacity(t *testing.T) {
	rs := RollingSnapshots[string, testEvent](isSnap, toSnap)
	tok := store.Token{Position: es.Position{StreamVersion: -1}}
	decided := []testEvent{{Kind: "a"}}
	wd := rs.PrepareWrite(tok, decided, "state", 500)
	if len(wd.Events) != 1 || wd.RecordsOrigin {
		t.Errorf("expected no snapshot within capacity, got %+v", wd)
	}
}

func TestRollingSnapshots_SnapshotWhenOverCapacity(t *testing.T) {
	rs := RollingSnapshots[string, testEvent](isSnap, toSnap)
	// batchSize 10, 12 prior events already in stream (streamVersion 11, no
	// compaction yet): capacity = max(0, 10 - unstoredPending - (11+1) - 1)
	// which for unstoredPending=1 is -4 -> limit 0, so any decided
	// batch should trigger a snapshot.
	tok := store.Token{Position: es.Position{StreamVersion: 11}}
	decided := []testEvent{{Kind: "a"}}
	wd := rs.PrepareWrite(tok, decided, "state", 10)
	if len(wd.Events) != 2 || !isSnap(wd.Events[1]) || !wd.RecordsOrigin {
		t.Errorf("expected snapshot to be appended when over capacity, got %+v", wd)
	}
}

func TestCapacityLimit_WithCompactionIndex(t *testing.T) {
	idx := int64(5)
	pos := es.Position{StreamVersion: 9, CompactionEventIndex: &idx}
	// batchSize 10, unstoredPending 1: 10 - 1 - (9-5+1) = 10-1-5 = 4
	got := CapacityLimit(10, 1, pos)
	if got != 4 {
		t.Errorf("CapacityLimit = %d, want 4", got)
	}
}

func TestCapacityLimit_NeverNegative(t *testing.T) {
	pos := es.Position{StreamVersion: 100}
	got := CapacityLimit(10, 50, pos)
	if got != 0 {
		t.Errorf("CapacityLimit = %d, want 0", got)
	}
}
