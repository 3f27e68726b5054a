package store

import "testing"

func TestExpectedVersion_Any(t *testing.T) {
	ev := Any()
	if !ev.IsAny() {
		t.Error("expected IsAny() to be true")
	}
	if ev.IsNoStream() {
		t.Error("expected IsNoStream() to be false")
	}
	if ev.String() != "Any" {
		t.Errorf("String() = %q, want Any", ev.String())
	}
}

func TestExpectedVersion_NoStream(t *testing.T) {
	ev := NoStream()
	if ev.IsAny() {
		t.Error("expected IsAny() to be false")
	}
	if !ev.IsNoStream() {
		t.Error("expected IsNoStream() to be true")
	}
	if ev.String() != "NoStream" {
		t.Errorf("String() = %q, want NoStream", ev.String())
	}
}

func TestExpectedVersion_Exact(t *testing.T) {
	tests := []struct {
		name          string
		streamVersion int64
		wantStr       string
	}{
		{"empty stream", -1, "Exact(-1)"},
		{"first event", 0, "Exact(0)"},
		{"several events", 4, "Exact(4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Exact(tt.streamVersion)
			if ev.IsAny() || ev.IsNoStream() {
				t.Error("Exact() must not report IsAny/IsNoStream")
			}
			if ev.StreamVersion() != tt.streamVersion {
				t.Errorf("StreamVersion() = %d, want %d", ev.StreamVersion(), tt.streamVersion)
			}
			if ev.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", ev.String(), tt.wantStr)
			}
		})
	}
}

func TestExpectedVersion_ExactPanicsBelowNegativeOne(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for version < -1")
		}
	}()
	Exact(-2)
}

func TestFromToken(t *testing.T) {
	tok := Token{Position: EmptyToken.Position.WithAppend(3)}
	ev := FromToken(tok)
	if ev.StreamVersion() != 2 {
		t.Errorf("StreamVersion() = %d, want 2", ev.StreamVersion())
	}
}
